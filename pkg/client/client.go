// Package client implements the three-state OT client described in spec
// §4.5: synchronized, awaiting-confirm, and awaiting-with-buffer, with an
// optional debounce timer gating when local edits hit the wire.
package client

import (
	"sync"
	"time"

	"github.com/shiv248/coedit/pkg/cursor"
	"github.com/shiv248/coedit/pkg/document"
	"github.com/shiv248/coedit/pkg/ot"
)

// State is one of the three client states.
type State int

const (
	StateSynchronized State = iota
	StateAwaitingConfirm
	StateAwaitingWithBuffer
)

func (s State) String() string {
	switch s {
	case StateSynchronized:
		return "synchronized"
	case StateAwaitingConfirm:
		return "awaiting_confirm"
	case StateAwaitingWithBuffer:
		return "awaiting_with_buffer"
	default:
		return "unknown"
	}
}

// Submission is what the client hands to its Send callback: a batch of
// ops the host must deliver to the server along with the client's base
// revision.
type Submission struct {
	Revision int
	Ops      []document.Operation
}

// AckMessage, OperationMessage, and CursorMessage are the three inbound
// message shapes HandleMessage dispatches on.
type AckMessage struct {
	Revision int
}

type OperationMessage struct {
	Revision int
	Ops      []document.Operation
}

type CursorMessage struct {
	PeerID   string
	Position document.Position
	Color    string
	Name     string
}

// InboundMessage is a tagged union; exactly one field should be set.
type InboundMessage struct {
	Ack       *AckMessage
	Operation *OperationMessage
	Cursor    *CursorMessage
}

// Options configures a new Client. Send is required; the callbacks are
// optional (a nil callback simply means the host doesn't care).
type Options struct {
	DebounceDelay        time.Duration
	Send                 func(Submission)
	SendCursor           func(document.Position, string)
	OnRemoteOperations   func([]document.Operation)
	OnRemoteCursorUpdate func(cursor.Entry)
}

// Client is a single-document OT client. Every exported method except
// GetRemoteCursors (which relies on the cursor tracker's own lock)
// acquires an internal mutex: the spec models the client as single-threaded
// cooperative, but the one asynchronous entry point (the debounce timer)
// runs on its own goroutine in Go, so a mutex is what makes the two
// converge safely instead of racing.
type Client struct {
	mu sync.Mutex

	state       State
	revision    int
	outstanding []document.Operation
	buffer      []document.Operation

	debounceDelay  time.Duration
	debounceBuffer []document.Operation
	timer          *time.Timer

	cursors *cursor.Tracker

	send                 func(Submission)
	sendCursor           func(document.Position, string)
	onRemoteOperations   func([]document.Operation)
	onRemoteCursorUpdate func(cursor.Entry)

	destroyed bool
}

// New returns a client in the synchronized state at revision 0.
func New(opts Options) *Client {
	return &Client{
		state:                StateSynchronized,
		debounceDelay:        opts.DebounceDelay,
		cursors:              cursor.New(),
		send:                 opts.Send,
		sendCursor:           opts.SendCursor,
		onRemoteOperations:   opts.OnRemoteOperations,
		onRemoteCursorUpdate: opts.OnRemoteCursorUpdate,
	}
}

// ApplyLocal applies a non-empty batch of locally-originated ops: it maps
// tracked remote cursors through them, then dispatches by current state
// per spec §4.5.
func (c *Client) ApplyLocal(ops []document.Operation) {
	if len(ops) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.cursors.MapThrough(ops)
	c.dispatchLocalLocked(ops)
}

func (c *Client) dispatchLocalLocked(ops []document.Operation) {
	switch c.state {
	case StateSynchronized:
		if c.debounceDelay <= 0 {
			c.shipLocked(ops)
			return
		}
		c.debounceBuffer = append(c.debounceBuffer, ops...)
		c.armTimerLocked()
	case StateAwaitingConfirm:
		c.buffer = ops
		c.state = StateAwaitingWithBuffer
	case StateAwaitingWithBuffer:
		c.buffer = append(c.buffer, ops...)
	}
}

// shipLocked sends ops to the server right now and moves to
// awaiting_confirm. Callers must hold c.mu and must only call this from
// the synchronized state.
func (c *Client) shipLocked(ops []document.Operation) {
	c.outstanding = ops
	c.state = StateAwaitingConfirm
	if c.send != nil {
		c.send(Submission{Revision: c.revision, Ops: ops})
	}
}

func (c *Client) armTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounceDelay, c.onTimerFire)
}

func (c *Client) onTimerFire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	ops := c.debounceBuffer
	c.debounceBuffer = nil
	c.timer = nil
	if len(ops) == 0 {
		return
	}
	switch c.state {
	case StateSynchronized:
		c.shipLocked(ops)
	case StateAwaitingConfirm:
		c.buffer = append(c.buffer, ops...)
		c.state = StateAwaitingWithBuffer
	case StateAwaitingWithBuffer:
		c.buffer = append(c.buffer, ops...)
	}
}

// flushDebounceLocked ships a pending debounce buffer immediately,
// bypassing the timer. debounceBuffer is only ever non-empty while the
// client is synchronized, so this always lands in shipLocked.
func (c *Client) flushDebounceLocked() {
	if len(c.debounceBuffer) == 0 {
		return
	}
	ops := c.debounceBuffer
	c.debounceBuffer = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.dispatchLocalLocked(ops)
}

// HandleMessage dispatches an inbound ack/operation/cursor message.
func (c *Client) HandleMessage(msg InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	switch {
	case msg.Ack != nil:
		c.handleAckLocked(msg.Ack.Revision)
	case msg.Operation != nil:
		c.handleOperationLocked(msg.Operation.Revision, msg.Operation.Ops)
	case msg.Cursor != nil:
		c.handleCursorLocked(msg.Cursor)
	}
}

func (c *Client) handleAckLocked(revision int) {
	switch c.state {
	case StateAwaitingConfirm:
		c.revision = revision
		c.outstanding = nil
		c.state = StateSynchronized
	case StateAwaitingWithBuffer:
		c.revision = revision
		outstanding := c.buffer
		c.buffer = nil
		c.outstanding = outstanding
		c.state = StateAwaitingConfirm
		if c.send != nil {
			c.send(Submission{Revision: revision, Ops: outstanding})
		}
	case StateSynchronized:
		// Unexpected per spec §4.5/§4.8: update revision, otherwise ignore.
		c.revision = revision
	}
}

func (c *Client) handleOperationLocked(revision int, remote []document.Operation) {
	c.flushDebounceLocked()

	switch c.state {
	case StateSynchronized:
		c.emitRemoteLocked(remote)
		c.revision = revision
	case StateAwaitingConfirm:
		remote, outstanding := ot.TransformOps(remote, c.outstanding)
		c.outstanding = outstanding
		c.emitRemoteLocked(remote)
		c.revision = revision
	case StateAwaitingWithBuffer:
		remote, outstanding := ot.TransformOps(remote, c.outstanding)
		c.outstanding = outstanding
		remote, buffer := ot.TransformOps(remote, c.buffer)
		c.buffer = buffer
		c.emitRemoteLocked(remote)
		c.revision = revision
	}
}

func (c *Client) emitRemoteLocked(remote []document.Operation) {
	if c.onRemoteOperations != nil {
		c.onRemoteOperations(remote)
	}
	c.cursors.MapThrough(remote)
}

func (c *Client) handleCursorLocked(msg *CursorMessage) {
	entry := cursor.Entry{UserID: msg.PeerID, Position: msg.Position, Color: msg.Color, Name: msg.Name}
	c.cursors.Update(entry.UserID, entry.Position, entry.Color, entry.Name)
	if c.onRemoteCursorUpdate != nil {
		c.onRemoteCursorUpdate(entry)
	}
}

// UpdateLocalCursor reports the local cursor's new position to the host
// for sending to peers. It does not touch the tracker of remote cursors.
func (c *Client) UpdateLocalCursor(pos document.Position, color string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.sendCursor == nil {
		return
	}
	c.sendCursor(pos, color)
}

// GetRemoteCursors returns a snapshot of every tracked remote cursor.
func (c *Client) GetRemoteCursors() []cursor.Entry {
	return c.cursors.GetAll()
}

// GetState returns the client's current state.
func (c *Client) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetRevision returns the client's last known server revision.
func (c *Client) GetRevision() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Destroy tears the client down: cancels the pending debounce timer,
// clears outstanding/buffer/cursor state, and returns to synchronized.
// In-flight messages already handed to Send are not recallable.
func (c *Client) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.destroyed = true
	c.outstanding = nil
	c.buffer = nil
	c.debounceBuffer = nil
	c.cursors.Clear()
	c.state = StateSynchronized
}
