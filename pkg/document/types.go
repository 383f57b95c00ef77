// Package document implements the line-structured text document and the
// operation model (insert/delete/split/merge of lines and line text) that
// every other collaboration component builds on.
package document

import "github.com/google/uuid"

// LineID is a process-unique, never-reused token identifying a line across
// edits. It is minted fresh whenever a line is created and is never reused
// after the line it names is deleted, so a DOM-backed renderer can key nodes
// on it without causing spurious reflows.
type LineID uuid.UUID

// NewLineID mints a fresh line identity.
func NewLineID() LineID {
	return LineID(uuid.New())
}

func (id LineID) String() string {
	return uuid.UUID(id).String()
}

// Line is a single line of text paired with its stable identity.
type Line struct {
	ID   LineID
	Text string
}

// Document is an immutable ordered sequence of lines plus a monotonically
// non-decreasing version. Every apply returns a new Document value; the
// underlying line slice is never mutated in place, so old values remain
// valid to hold onto after a newer one is produced.
type Document struct {
	ID      string
	Version int
	Lines   []Line
}

// NewEmpty returns a fresh document containing exactly one empty line, the
// only valid representation of "no content" (an empty document is never a
// zero-line document).
func NewEmpty(id string) *Document {
	return &Document{
		ID:      id,
		Version: 0,
		Lines:   []Line{{ID: NewLineID(), Text: ""}},
	}
}

// FromText splits s on "\n" into lines, minting a fresh identity for each.
func FromText(id, text string) *Document {
	parts := splitLines(text)
	lines := make([]Line, len(parts))
	for i, p := range parts {
		lines[i] = Line{ID: NewLineID(), Text: p}
	}
	return &Document{ID: id, Version: 0, Lines: lines}
}

func splitLines(text string) []string {
	if text == "" {
		return []string{""}
	}
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	parts = append(parts, text[start:])
	return parts
}

// Text joins every line with "\n", reconstructing the flat document text.
func (d *Document) Text() string {
	if len(d.Lines) == 0 {
		return ""
	}
	out := d.Lines[0].Text
	for _, l := range d.Lines[1:] {
		out += "\n" + l.Text
	}
	return out
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int {
	return len(d.Lines)
}

// Line returns the line at index i. The second return is false if i is out
// of bounds.
func (d *Document) Line(i int) (Line, bool) {
	if i < 0 || i >= len(d.Lines) {
		return Line{}, false
	}
	return d.Lines[i], true
}

// Position is a zero-based (line, column) location; column is counted in
// UTF-16 code units to match the wire protocol of a JavaScript-hosted peer.
// An implementation that never interoperates with a UTF-16 peer may instead
// treat column as a code-point count, provided every component agrees.
type Position struct {
	Line   int
	Column int
}

// Range is a pair of positions; either endpoint may come first in document
// order. A Range is collapsed iff Anchor == Focus.
type Range struct {
	Anchor Position
	Focus  Position
}

// Collapsed reports whether the range's endpoints coincide.
func (r Range) Collapsed() bool {
	return r.Anchor == r.Focus
}

// MultiSelection is a non-empty ordered set of ranges with one designated
// primary range.
type MultiSelection struct {
	Ranges  []Range
	Primary int
}

// PrimaryRange returns the selection's primary range.
func (s MultiSelection) PrimaryRange() Range {
	return s.Ranges[s.Primary]
}

// Origin tags where an operation came from, for filtering and display.
type Origin string

const (
	OriginInput       Origin = "input"
	OriginRemote      Origin = "remote"
	OriginHistoryUndo Origin = "history:undo"
	OriginHistoryRedo Origin = "history:redo"
	OriginCommand     Origin = "command"
)

// Kind discriminates the seven operation variants.
type Kind int

const (
	KindInsertText Kind = iota
	KindDeleteText
	KindInsertLine
	KindDeleteLine
	KindSplitLine
	KindMergeLine
	KindReplaceLine
)

// Operation is the closed sum type over every edit the engine understands.
// Only the fields relevant to Kind are meaningful; the apply engine, the OT
// engine, the codec, and the position mapper all switch exhaustively on Kind.
type Operation struct {
	Kind Kind

	Line   int // insertText, deleteText, splitLine, mergeLine
	Column int // insertText, deleteText, splitLine
	Index  int // insertLine, deleteLine, replaceLine

	Text   string // insertText, insertLine, replaceLine payload
	Length int    // deleteText: number of UTF-16 units to remove

	Origin Origin
}

// InsertText builds an insertText operation.
func InsertText(line, column int, text string, origin Origin) Operation {
	return Operation{Kind: KindInsertText, Line: line, Column: column, Text: text, Origin: origin}
}

// DeleteText builds a deleteText operation.
func DeleteText(line, column, length int, origin Origin) Operation {
	return Operation{Kind: KindDeleteText, Line: line, Column: column, Length: length, Origin: origin}
}

// InsertLine builds an insertLine operation.
func InsertLine(index int, text string, origin Origin) Operation {
	return Operation{Kind: KindInsertLine, Index: index, Text: text, Origin: origin}
}

// DeleteLine builds a deleteLine operation.
func DeleteLine(index int, origin Origin) Operation {
	return Operation{Kind: KindDeleteLine, Index: index, Origin: origin}
}

// SplitLine builds a splitLine operation.
func SplitLine(line, column int, origin Origin) Operation {
	return Operation{Kind: KindSplitLine, Line: line, Column: column, Origin: origin}
}

// MergeLine builds a mergeLine operation, absorbing line+1 into line.
func MergeLine(line int, origin Origin) Operation {
	return Operation{Kind: KindMergeLine, Line: line, Origin: origin}
}

// ReplaceLine builds a replaceLine operation.
func ReplaceLine(index int, text string, origin Origin) Operation {
	return Operation{Kind: KindReplaceLine, Index: index, Text: text, Origin: origin}
}

// IsNoop reports whether op is the OT engine's cancellation sentinel: an
// insertText of the empty string at (0,0). Applying a noop never changes a
// document of any shape.
func (op Operation) IsNoop() bool {
	return op.Kind == KindInsertText && op.Line == 0 && op.Column == 0 && op.Text == ""
}

// Noop returns the OT engine's sentinel for a pair that logically cancels.
func Noop() Operation {
	return Operation{Kind: KindInsertText, Line: 0, Column: 0, Text: "", Origin: OriginRemote}
}

// Transaction bundles a batch of operations with an optional selection to
// install after applying them (if nil, the caller should map the existing
// selection through ops instead).
type Transaction struct {
	Ops       []Operation
	Selection *MultiSelection
	Origin    Origin
}
