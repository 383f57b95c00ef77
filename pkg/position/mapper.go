// Package position maps positions, ranges, and selections through operations
// so that cursors and selections stay spatially accurate as a document is
// edited, locally or by a remote peer.
package position

import "github.com/shiv248/coedit/pkg/document"

// Map maps a single position through one operation. It is a total function:
// every operation kind has a defined effect, and the result never carries a
// negative line or column.
func Map(pos document.Position, op document.Operation) document.Position {
	switch op.Kind {
	case document.KindInsertText:
		return mapInsertText(pos, op)
	case document.KindDeleteText:
		return mapDeleteText(pos, op)
	case document.KindInsertLine:
		return mapInsertLine(pos, op)
	case document.KindDeleteLine:
		return mapDeleteLine(pos, op)
	case document.KindSplitLine:
		return mapSplitLine(pos, op)
	case document.KindMergeLine:
		return mapMergeLine(pos, op)
	case document.KindReplaceLine:
		return pos
	default:
		return pos
	}
}

func mapInsertText(pos document.Position, op document.Operation) document.Position {
	if pos.Line != op.Line || pos.Column < op.Column {
		return pos
	}
	return document.Position{Line: pos.Line, Column: pos.Column + utf16Len(op.Text)}
}

func mapDeleteText(pos document.Position, op document.Operation) document.Position {
	if pos.Line != op.Line || pos.Column <= op.Column {
		return pos
	}
	end := op.Column + op.Length
	if pos.Column >= end {
		return document.Position{Line: pos.Line, Column: pos.Column - op.Length}
	}
	return document.Position{Line: pos.Line, Column: op.Column}
}

func mapInsertLine(pos document.Position, op document.Operation) document.Position {
	if pos.Line < op.Index {
		return pos
	}
	return document.Position{Line: pos.Line + 1, Column: pos.Column}
}

func mapDeleteLine(pos document.Position, op document.Operation) document.Position {
	switch {
	case pos.Line < op.Index:
		return pos
	case pos.Line == op.Index:
		return document.Position{Line: pos.Line, Column: 0}
	default:
		return document.Position{Line: pos.Line - 1, Column: pos.Column}
	}
}

func mapSplitLine(pos document.Position, op document.Operation) document.Position {
	switch {
	case pos.Line < op.Line:
		return pos
	case pos.Line == op.Line:
		if pos.Column <= op.Column {
			return pos
		}
		return document.Position{Line: pos.Line + 1, Column: pos.Column - op.Column}
	default:
		return document.Position{Line: pos.Line + 1, Column: pos.Column}
	}
}

// mapMergeLine carries the documented limitation from spec §4.2: a position
// on the merged-away line (op.Line+1) keeps its column instead of being
// offset by the length of op.Line's text, because the mapper is stateless
// and has no document to consult. Every peer (client, server, cursor
// tracker) MUST use this same convention or replicas will disagree about
// where a remote cursor lands after a merge.
func mapMergeLine(pos document.Position, op document.Operation) document.Position {
	switch {
	case pos.Line <= op.Line:
		return pos
	case pos.Line == op.Line+1:
		return document.Position{Line: op.Line, Column: pos.Column}
	default:
		return document.Position{Line: pos.Line - 1, Column: pos.Column}
	}
}

// MapRange maps both endpoints of r independently through op.
func MapRange(r document.Range, op document.Operation) document.Range {
	return document.Range{Anchor: Map(r.Anchor, op), Focus: Map(r.Focus, op)}
}

// MapThroughOps left-folds Map over a sequence of operations.
func MapThroughOps(pos document.Position, ops []document.Operation) document.Position {
	for _, op := range ops {
		pos = Map(pos, op)
	}
	return pos
}

// MapRangeThroughOps left-folds MapRange over a sequence of operations.
func MapRangeThroughOps(r document.Range, ops []document.Operation) document.Range {
	for _, op := range ops {
		r = MapRange(r, op)
	}
	return r
}

// MapSelectionThrough maps every range of sel (primary and non-primary)
// through ops, preserving which index is primary.
func MapSelectionThrough(sel document.MultiSelection, ops []document.Operation) document.MultiSelection {
	mapped := make([]document.Range, len(sel.Ranges))
	for i, r := range sel.Ranges {
		mapped[i] = MapRangeThroughOps(r, ops)
	}
	return document.MultiSelection{Ranges: mapped, Primary: sel.Primary}
}
