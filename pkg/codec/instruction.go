// Package codec encodes document operations into the compact wire
// Instruction form used by the protocol layer, and decodes them back.
// Encoding fails only for an operation of unknown kind; decoding a corrupt or version-skewed instruction
// does, by design (see spec §4.4/§7: an unknown opcode is a hard error,
// not swallowed like an out-of-bounds apply).
package codec

import (
	"fmt"
	"strconv"

	"github.com/shiv248/coedit/pkg/document"
)

// Opcode is an Instruction's operation code. Five opcodes cover the seven
// operation kinds: SET carries replaceLine, splitLine and mergeLine,
// told apart by the path.
type Opcode string

const (
	OpStrIns    Opcode = "STR_INS"
	OpStrRem    Opcode = "STR_REM"
	OpArrIns    Opcode = "ARR_INS"
	OpArrRemIdx Opcode = "ARR_REM_IDX"
	OpSet       Opcode = "SET"
)

// Instruction is the bit-exact wire record from spec §4.4: opcode, a path
// of string segments, an optional integer, an optional length, and an
// optional value (string or integer depending on opcode).
type Instruction struct {
	O Opcode      `json:"o"`
	P []string    `json:"p,omitempty"`
	I *int        `json:"i,omitempty"`
	L *int        `json:"l,omitempty"`
	V interface{} `json:"v,omitempty"`
}

func intPtr(n int) *int { return &n }

// Encode converts an operation into its wire Instruction. Each of the seven
// document.Kind values has exactly one shape in the table below; any other
// Kind is an error.
func Encode(op document.Operation) (Instruction, error) {
	switch op.Kind {
	case document.KindInsertText:
		return Instruction{O: OpStrIns, P: []string{strconv.Itoa(op.Line)}, I: intPtr(op.Column), V: op.Text}, nil
	case document.KindDeleteText:
		return Instruction{O: OpStrRem, P: []string{strconv.Itoa(op.Line)}, I: intPtr(op.Column), L: intPtr(op.Length)}, nil
	case document.KindInsertLine:
		return Instruction{O: OpArrIns, P: []string{}, I: intPtr(op.Index), V: op.Text}, nil
	case document.KindDeleteLine:
		return Instruction{O: OpArrRemIdx, P: []string{}, I: intPtr(op.Index)}, nil
	case document.KindReplaceLine:
		return Instruction{O: OpSet, P: []string{strconv.Itoa(op.Index)}, V: op.Text}, nil
	case document.KindSplitLine:
		return Instruction{O: OpSet, P: []string{"s", strconv.Itoa(op.Line)}, V: op.Column}, nil
	case document.KindMergeLine:
		return Instruction{O: OpSet, P: []string{"m"}, V: op.Line}, nil
	default:
		return Instruction{}, fmt.Errorf("codec: encode: unknown operation kind %v", op.Kind)
	}
}

// Decode converts a wire Instruction back into an operation, tagging it
// with origin (the wire itself carries no origin; the caller decides —
// almost always document.OriginRemote for anything arriving off the
// transport).
func Decode(inst Instruction, origin document.Origin) (document.Operation, error) {
	switch inst.O {
	case OpStrIns:
		line, err := pathLine(inst.P)
		if err != nil {
			return document.Operation{}, err
		}
		text, err := valueString(inst.V)
		if err != nil {
			return document.Operation{}, err
		}
		if inst.I == nil {
			return document.Operation{}, fmt.Errorf("codec: decode STR_INS: missing i")
		}
		return document.InsertText(line, *inst.I, text, origin), nil

	case OpStrRem:
		line, err := pathLine(inst.P)
		if err != nil {
			return document.Operation{}, err
		}
		if inst.I == nil || inst.L == nil {
			return document.Operation{}, fmt.Errorf("codec: decode STR_REM: missing i or l")
		}
		return document.DeleteText(line, *inst.I, *inst.L, origin), nil

	case OpArrIns:
		if inst.I == nil {
			return document.Operation{}, fmt.Errorf("codec: decode ARR_INS: missing i")
		}
		text, err := valueString(inst.V)
		if err != nil {
			return document.Operation{}, err
		}
		return document.InsertLine(*inst.I, text, origin), nil

	case OpArrRemIdx:
		if inst.I == nil {
			return document.Operation{}, fmt.Errorf("codec: decode ARR_REM_IDX: missing i")
		}
		return document.DeleteLine(*inst.I, origin), nil

	case OpSet:
		return decodeSet(inst, origin)

	default:
		return document.Operation{}, fmt.Errorf("codec: decode: unknown opcode %q", inst.O)
	}
}

func decodeSet(inst Instruction, origin document.Origin) (document.Operation, error) {
	if len(inst.P) == 0 {
		return document.Operation{}, fmt.Errorf("codec: decode SET: empty path")
	}
	switch inst.P[0] {
	case "s":
		if len(inst.P) != 2 {
			return document.Operation{}, fmt.Errorf("codec: decode SET splitLine: malformed path %v", inst.P)
		}
		line, err := strconv.Atoi(inst.P[1])
		if err != nil {
			return document.Operation{}, fmt.Errorf("codec: decode SET splitLine: %w", err)
		}
		column, err := valueInt(inst.V)
		if err != nil {
			return document.Operation{}, err
		}
		return document.SplitLine(line, column, origin), nil

	case "m":
		line, err := valueInt(inst.V)
		if err != nil {
			return document.Operation{}, err
		}
		return document.MergeLine(line, origin), nil

	default:
		index, err := strconv.Atoi(inst.P[0])
		if err != nil {
			return document.Operation{}, fmt.Errorf("codec: decode SET replaceLine: %w", err)
		}
		text, err := valueString(inst.V)
		if err != nil {
			return document.Operation{}, err
		}
		return document.ReplaceLine(index, text, origin), nil
	}
}

func pathLine(p []string) (int, error) {
	if len(p) != 1 {
		return 0, fmt.Errorf("codec: decode: expected a one-element path, got %v", p)
	}
	line, err := strconv.Atoi(p[0])
	if err != nil {
		return 0, fmt.Errorf("codec: decode: malformed line in path: %w", err)
	}
	return line, nil
}

// valueString and valueInt tolerate both Go-native types (int, string) and
// the float64 that encoding/json produces when Instruction.V round-trips
// through interface{} as JSON. A nil V (omitempty drops "" and 0 from the
// wire) decodes as the zero value.
func valueString(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("codec: decode: expected string value, got %T", v)
	}
	return s, nil
}

func valueInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("codec: decode: expected integer value, got %T", v)
	}
}

// EncodeMany encodes an operation sequence in order.
func EncodeMany(ops []document.Operation) ([]Instruction, error) {
	out := make([]Instruction, len(ops))
	for i, op := range ops {
		inst, err := Encode(op)
		if err != nil {
			return nil, err
		}
		out[i] = inst
	}
	return out, nil
}

// DecodeMany decodes an instruction sequence in order, tagging every
// resulting operation with origin.
func DecodeMany(insts []Instruction, origin document.Origin) ([]document.Operation, error) {
	out := make([]document.Operation, len(insts))
	for i, inst := range insts {
		op, err := Decode(inst, origin)
		if err != nil {
			return nil, fmt.Errorf("codec: decode instruction %d: %w", i, err)
		}
		out[i] = op
	}
	return out, nil
}
