//go:build js && wasm

// Command coedit-wasm exposes the collaboration core to a JavaScript host
// (the browser editor shell) over syscall/js: the document model, the
// transform engine, and the three-state client, all speaking the same
// Instruction JSON the WebSocket wire protocol uses, so the host never has
// to hand-construct a document.Operation by field.
package main

import (
	"encoding/json"
	"errors"
	"syscall/js"
	"time"

	"github.com/shiv248/coedit/pkg/client"
	"github.com/shiv248/coedit/pkg/codec"
	"github.com/shiv248/coedit/pkg/cursor"
	"github.com/shiv248/coedit/pkg/document"
	"github.com/shiv248/coedit/pkg/ot"
)

func jsError(err error) js.Value {
	obj := map[string]interface{}{"error": err.Error()}
	return js.ValueOf(obj)
}

func decodeInstructions(jsonStr string) ([]document.Operation, error) {
	var instructions []codec.Instruction
	if err := json.Unmarshal([]byte(jsonStr), &instructions); err != nil {
		return nil, err
	}
	return codec.DecodeMany(instructions, document.OriginRemote)
}

func encodeInstructions(ops []document.Operation) (string, error) {
	instructions, err := codec.EncodeMany(ops)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(instructions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// wrapDocument wraps a *document.Document as a JS value. Documents are
// immutable, so "mutating" methods return a freshly wrapped value rather
// than changing this wrapper in place.
func wrapDocument(doc *document.Document) js.Value {
	obj := make(map[string]interface{})

	obj["text"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return doc.Text()
	})

	obj["lines"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		lines := make([]interface{}, doc.LineCount())
		for i := range lines {
			l, _ := doc.Line(i)
			lines[i] = l.Text
		}
		return js.ValueOf(lines)
	})

	obj["version"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return doc.Version
	})

	obj["applyInstructions"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) == 0 {
			return jsError(errNoArgs)
		}
		ops, err := decodeInstructions(args[0].String())
		if err != nil {
			return jsError(err)
		}
		return wrapDocument(document.ApplyAll(doc, ops))
	})

	return js.ValueOf(obj)
}

var errNoArgs = errors.New("missing argument")

// wrapClient wraps a *client.Client, translating its Go callbacks into JS
// function invocations and its JS-facing methods into Instruction JSON.
func wrapClient(jsOpts js.Value) js.Value {
	var send, sendCursor, onRemoteOps, onRemoteCursor js.Value
	if v := jsOpts.Get("send"); v.Type() == js.TypeFunction {
		send = v
	}
	if v := jsOpts.Get("sendCursor"); v.Type() == js.TypeFunction {
		sendCursor = v
	}
	if v := jsOpts.Get("onRemoteOperations"); v.Type() == js.TypeFunction {
		onRemoteOps = v
	}
	if v := jsOpts.Get("onRemoteCursorUpdate"); v.Type() == js.TypeFunction {
		onRemoteCursor = v
	}

	debounceMs := 0
	if v := jsOpts.Get("debounceMs"); v.Type() == js.TypeNumber {
		debounceMs = v.Int()
	}

	c := client.New(client.Options{
		DebounceDelay: time.Duration(debounceMs) * time.Millisecond,
		Send: func(s client.Submission) {
			if send.IsUndefined() {
				return
			}
			instJSON, err := encodeInstructions(s.Ops)
			if err != nil {
				return
			}
			send.Invoke(s.Revision, instJSON)
		},
		SendCursor: func(pos document.Position, color string) {
			if sendCursor.IsUndefined() {
				return
			}
			sendCursor.Invoke(pos.Line, pos.Column, color)
		},
		OnRemoteOperations: func(ops []document.Operation) {
			if onRemoteOps.IsUndefined() {
				return
			}
			instJSON, err := encodeInstructions(ops)
			if err != nil {
				return
			}
			onRemoteOps.Invoke(instJSON)
		},
		OnRemoteCursorUpdate: func(entry cursor.Entry) {
			if onRemoteCursor.IsUndefined() {
				return
			}
			onRemoteCursor.Invoke(entry.UserID, entry.Position.Line, entry.Position.Column, entry.Color, entry.Name)
		},
	})

	obj := make(map[string]interface{})

	obj["applyLocal"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) == 0 {
			return jsError(errNoArgs)
		}
		ops, err := decodeInstructions(args[0].String())
		if err != nil {
			return jsError(err)
		}
		c.ApplyLocal(ops)
		return nil
	})

	obj["handleAck"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) == 0 {
			return jsError(errNoArgs)
		}
		c.HandleMessage(client.InboundMessage{Ack: &client.AckMessage{Revision: args[0].Int()}})
		return nil
	})

	obj["handleOperation"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return jsError(errNoArgs)
		}
		ops, err := decodeInstructions(args[1].String())
		if err != nil {
			return jsError(err)
		}
		c.HandleMessage(client.InboundMessage{Operation: &client.OperationMessage{Revision: args[0].Int(), Ops: ops}})
		return nil
	})

	obj["handleCursor"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 5 {
			return jsError(errNoArgs)
		}
		c.HandleMessage(client.InboundMessage{Cursor: &client.CursorMessage{
			PeerID:   args[0].String(),
			Position: document.Position{Line: args[1].Int(), Column: args[2].Int()},
			Color:    args[3].String(),
			Name:     args[4].String(),
		}})
		return nil
	})

	obj["updateLocalCursor"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 3 {
			return jsError(errNoArgs)
		}
		c.UpdateLocalCursor(document.Position{Line: args[0].Int(), Column: args[1].Int()}, args[2].String())
		return nil
	})

	obj["getState"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return c.GetState().String()
	})

	obj["getRevision"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return c.GetRevision()
	})

	obj["destroy"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		c.Destroy()
		return nil
	})

	return js.ValueOf(obj)
}

func main() {
	bridge := make(map[string]interface{})

	documentNS := make(map[string]interface{})
	documentNS["new"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		id := "doc"
		text := ""
		if len(args) > 0 {
			id = args[0].String()
		}
		if len(args) > 1 {
			text = args[1].String()
		}
		return wrapDocument(document.FromText(id, text))
	})
	bridge["Document"] = js.ValueOf(documentNS)

	bridge["transform"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return jsError(errNoArgs)
		}
		a, err := decodeInstructions(args[0].String())
		if err != nil {
			return jsError(err)
		}
		b, err := decodeInstructions(args[1].String())
		if err != nil {
			return jsError(err)
		}
		aPrime, bPrime := ot.TransformOps(a, b)
		aJSON, err := encodeInstructions(aPrime)
		if err != nil {
			return jsError(err)
		}
		bJSON, err := encodeInstructions(bPrime)
		if err != nil {
			return jsError(err)
		}
		return js.ValueOf(map[string]interface{}{"first": aJSON, "second": bJSON})
	})

	clientNS := make(map[string]interface{})
	clientNS["new"] = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		opts := js.ValueOf(map[string]interface{}{})
		if len(args) > 0 {
			opts = args[0]
		}
		return wrapClient(opts)
	})
	bridge["Client"] = js.ValueOf(clientNS)

	js.Global().Set("CoEdit", js.ValueOf(bridge))

	println("coedit WASM module loaded")

	<-make(chan struct{})
}
