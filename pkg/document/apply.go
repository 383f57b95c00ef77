package document

// Apply applies a single operation to doc, returning a new document value.
// An out-of-range operation (per the bounds policy below) is a silent no-op:
// the input document is returned unchanged, version included, so a racing
// remote op against a concurrently deleted line degrades gracefully instead
// of panicking.
//
// Bounds policy, one variant at a time:
//   - insertText/deleteText: line must exist; column is clamped by the
//     UTF-16 helpers, never rejected.
//   - insertLine: index in [0, line_count].
//   - deleteLine/mergeLine: index/line in [0, line_count), and mergeLine
//     additionally requires line+1 to exist.
//   - splitLine: line in [0, line_count); column is clamped.
//   - replaceLine: index in [0, line_count).
func Apply(doc *Document, op Operation) *Document {
	switch op.Kind {
	case KindInsertText:
		return applyInsertText(doc, op)
	case KindDeleteText:
		return applyDeleteText(doc, op)
	case KindInsertLine:
		return applyInsertLine(doc, op)
	case KindDeleteLine:
		return applyDeleteLine(doc, op)
	case KindSplitLine:
		return applySplitLine(doc, op)
	case KindMergeLine:
		return applyMergeLine(doc, op)
	case KindReplaceLine:
		return applyReplaceLine(doc, op)
	default:
		return doc
	}
}

// ApplyAll left-folds Apply over ops, returning the final document.
func ApplyAll(doc *Document, ops []Operation) *Document {
	for _, op := range ops {
		doc = Apply(doc, op)
	}
	return doc
}

// withLines returns a new document sharing doc's ID, bumping its version,
// and replacing its lines with lines. Callers are responsible for reusing
// unchanged Line values from doc.Lines so structural sharing happens.
func withLines(doc *Document, lines []Line) *Document {
	return &Document{ID: doc.ID, Version: doc.Version + 1, Lines: lines}
}

func applyInsertText(doc *Document, op Operation) *Document {
	if op.Line < 0 || op.Line >= len(doc.Lines) {
		return doc
	}
	if op.Text == "" {
		return doc
	}
	lines := append([]Line(nil), doc.Lines...)
	old := lines[op.Line]
	lines[op.Line] = Line{ID: old.ID, Text: utf16Insert(old.Text, op.Column, op.Text)}
	return withLines(doc, lines)
}

func applyDeleteText(doc *Document, op Operation) *Document {
	if op.Line < 0 || op.Line >= len(doc.Lines) {
		return doc
	}
	lines := append([]Line(nil), doc.Lines...)
	old := lines[op.Line]
	lines[op.Line] = Line{ID: old.ID, Text: utf16Delete(old.Text, op.Column, op.Length)}
	return withLines(doc, lines)
}

func applyInsertLine(doc *Document, op Operation) *Document {
	if op.Index < 0 || op.Index > len(doc.Lines) {
		return doc
	}
	lines := make([]Line, 0, len(doc.Lines)+1)
	lines = append(lines, doc.Lines[:op.Index]...)
	lines = append(lines, Line{ID: NewLineID(), Text: op.Text})
	lines = append(lines, doc.Lines[op.Index:]...)
	return withLines(doc, lines)
}

func applyDeleteLine(doc *Document, op Operation) *Document {
	if op.Index < 0 || op.Index >= len(doc.Lines) {
		return doc
	}
	lines := make([]Line, 0, len(doc.Lines)-1)
	lines = append(lines, doc.Lines[:op.Index]...)
	lines = append(lines, doc.Lines[op.Index+1:]...)
	if len(lines) == 0 {
		lines = []Line{{ID: NewLineID(), Text: ""}}
	}
	return withLines(doc, lines)
}

func applySplitLine(doc *Document, op Operation) *Document {
	if op.Line < 0 || op.Line >= len(doc.Lines) {
		return doc
	}
	old := doc.Lines[op.Line]
	prefix := utf16Slice(old.Text, 0, op.Column)
	suffix := utf16Slice(old.Text, op.Column, utf16Len(old.Text))

	lines := make([]Line, 0, len(doc.Lines)+1)
	lines = append(lines, doc.Lines[:op.Line]...)
	lines = append(lines, Line{ID: old.ID, Text: prefix})
	lines = append(lines, Line{ID: NewLineID(), Text: suffix})
	lines = append(lines, doc.Lines[op.Line+1:]...)
	return withLines(doc, lines)
}

func applyMergeLine(doc *Document, op Operation) *Document {
	if op.Line < 0 || op.Line+1 >= len(doc.Lines) {
		return doc
	}
	first := doc.Lines[op.Line]
	second := doc.Lines[op.Line+1]

	lines := make([]Line, 0, len(doc.Lines)-1)
	lines = append(lines, doc.Lines[:op.Line]...)
	lines = append(lines, Line{ID: first.ID, Text: first.Text + second.Text})
	lines = append(lines, doc.Lines[op.Line+2:]...)
	return withLines(doc, lines)
}

func applyReplaceLine(doc *Document, op Operation) *Document {
	if op.Index < 0 || op.Index >= len(doc.Lines) {
		return doc
	}
	lines := append([]Line(nil), doc.Lines...)
	old := lines[op.Index]
	lines[op.Index] = Line{ID: old.ID, Text: op.Text}
	return withLines(doc, lines)
}
