// Package ot implements the pairwise operational-transformation engine: the
// pure function transform(opA, opB) -> (opA', opB') and its array lifting
// transformOps, over every pair of operation variants defined by
// pkg/document.
//
// Most pairs satisfy the TP1 convergence property. The exceptions are the
// rules documented as approximations below: an insertText strictly inside a
// concurrently deleted range, a text op or splitLine on the line a
// concurrent mergeLine absorbs (its column is not offset), an insertLine at
// a merge boundary, and same-line combinations of splitLine with
// deleteLine, mergeLine or replaceLine, and of replaceLine with mergeLine.
// For these the two application orders can produce different documents.
//
// Throughout this file, "A" is the canonical side: on any tie (two inserts
// at the same point, two structural ops at the same index) A is the one
// that keeps its position and B is the one that yields. Callers that need a
// specific side to be canonical (the server transforming a late submission
// against history) must pass the canonical operation as a.
package ot

import (
	"unicode/utf16"

	"github.com/shiv248/coedit/pkg/document"
)

// Transform is the heart of the collaboration core: a pure function such
// that for any document D to which both a and b individually apply cleanly,
//
//	Apply(Apply(D, a), bPrime) == Apply(Apply(D, b), aPrime)
//
// where (aPrime, bPrime) = Transform(a, b), except for the approximated
// pairs listed in the package documentation.
func Transform(a, b document.Operation) (document.Operation, document.Operation) {
	switch a.Kind {
	case document.KindInsertText:
		return transformTextLeft(a, b)
	case document.KindDeleteText:
		return transformTextLeft(a, b)
	case document.KindReplaceLine:
		return transformReplaceLeft(a, b)
	default:
		return transformStructuralLeft(a, b)
	}
}

// transformTextLeft handles every pair where a is insertText or deleteText.
func transformTextLeft(a, b document.Operation) (document.Operation, document.Operation) {
	switch b.Kind {
	case document.KindInsertText:
		if a.Kind == document.KindInsertText {
			return transformInsertInsert(a, b)
		}
		bp, ap := transformInsertDelete(b, a)
		return ap, bp
	case document.KindDeleteText:
		if a.Kind == document.KindDeleteText {
			return transformDeleteDelete(a, b)
		}
		return transformInsertDelete(a, b)
	case document.KindReplaceLine:
		return transformTextReplace(a, b)
	default:
		return transformTextVsStructural(a, b), b
	}
}

// transformReplaceLeft handles every pair where a is replaceLine.
func transformReplaceLeft(a, b document.Operation) (document.Operation, document.Operation) {
	switch b.Kind {
	case document.KindInsertText, document.KindDeleteText:
		bp, ap := transformTextReplace(b, a)
		return ap, bp
	case document.KindReplaceLine:
		return transformReplaceReplace(a, b)
	default:
		return transformReplaceVsStructural(a, b)
	}
}

// transformStructuralLeft handles every pair where a is insertLine,
// deleteLine, splitLine, or mergeLine.
func transformStructuralLeft(a, b document.Operation) (document.Operation, document.Operation) {
	switch b.Kind {
	case document.KindInsertText, document.KindDeleteText:
		return a, transformTextVsStructural(b, a)
	case document.KindReplaceLine:
		bp, ap := transformReplaceVsStructural(b, a)
		return ap, bp
	default:
		return transformStructuralStructural(a, b)
	}
}

// --- insertText / deleteText vs insertText / deleteText ---

func transformInsertInsert(a, b document.Operation) (document.Operation, document.Operation) {
	if a.Line != b.Line {
		return a, b
	}
	ap, bp := a, b
	if a.Column <= b.Column {
		bp.Column += utf16Len(a.Text)
	} else {
		ap.Column += utf16Len(b.Text)
	}
	return ap, bp
}

// transformInsertDelete transforms an insertText against a deleteText on
// the same line. ins and del must not be mutated by the caller afterwards.
func transformInsertDelete(ins, del document.Operation) (document.Operation, document.Operation) {
	if ins.Line != del.Line {
		return ins, del
	}
	insP, delP := ins, del
	delEnd := del.Column + del.Length
	switch {
	case ins.Column <= del.Column:
		delP.Column += utf16Len(ins.Text)
	case ins.Column >= delEnd:
		insP.Column -= del.Length
	default:
		insP.Column = del.Column
	}
	return insP, delP
}

func transformDeleteDelete(a, b document.Operation) (document.Operation, document.Operation) {
	if a.Line != b.Line {
		return a, b
	}
	aStart, aEnd := a.Column, a.Column+a.Length
	bStart, bEnd := b.Column, b.Column+b.Length

	overlapStart := max(aStart, bStart)
	overlapEnd := min(aEnd, bEnd)
	overlap := 0
	if overlapEnd > overlapStart {
		overlap = overlapEnd - overlapStart
	}

	newStart := min(aStart, bStart)
	ap, bp := a, b
	ap.Column, bp.Column = newStart, newStart
	ap.Length = a.Length - overlap
	bp.Length = b.Length - overlap
	return ap, bp
}

// --- insertText / deleteText vs replaceLine ---

// transformTextReplace handles a concurrent text edit and a full-line
// replace on the same line: the replace always wins because it discards
// whatever the line's prior content was, so the text edit collapses to a
// noop regardless of which side is considered canonical. Different lines
// leave both operations untouched.
func transformTextReplace(t, r document.Operation) (document.Operation, document.Operation) {
	if t.Line == r.Index {
		return document.Noop(), r
	}
	return t, r
}

func transformReplaceReplace(a, b document.Operation) (document.Operation, document.Operation) {
	if a.Index == b.Index {
		return a, document.Noop()
	}
	return a, b
}

// --- insertText / deleteText vs the line-structural ops ---

// transformTextVsStructural shifts a text-op's anchor line (and for
// splitLine, its column) through a concurrent structural operation. A
// deleteLine that removes the text op's own line degrades the text op to a
// noop: there is no longer a line for it to act on.
func transformTextVsStructural(t, s document.Operation) document.Operation {
	switch s.Kind {
	case document.KindInsertLine:
		if t.Line >= s.Index {
			t.Line++
		}
		return t
	case document.KindDeleteLine:
		switch {
		case t.Line == s.Index:
			return document.Noop()
		case t.Line > s.Index:
			t.Line--
		}
		return t
	case document.KindSplitLine:
		switch {
		case t.Line < s.Line:
			return t
		case t.Line == s.Line:
			if t.Column <= s.Column {
				return t
			}
			t.Line++
			t.Column -= s.Column
			return t
		default:
			t.Line++
			return t
		}
	case document.KindMergeLine:
		switch {
		case t.Line <= s.Line:
			return t
		case t.Line == s.Line+1:
			t.Line = s.Line
			return t
		default:
			t.Line--
			return t
		}
	default:
		return t
	}
}

// --- replaceLine vs the line-structural ops ---

func transformReplaceVsStructural(r, s document.Operation) (document.Operation, document.Operation) {
	switch s.Kind {
	case document.KindInsertLine:
		if r.Index >= s.Index {
			r.Index++
		}
		return r, s
	case document.KindDeleteLine:
		if r.Index == s.Index {
			return document.Noop(), s
		}
		if r.Index > s.Index {
			r.Index--
		}
		return r, s
	case document.KindSplitLine:
		if r.Index > s.Line {
			r.Index++
		}
		return r, s
	case document.KindMergeLine:
		switch {
		case r.Index <= s.Line:
		case r.Index == s.Line+1:
			r.Index = s.Line
		default:
			r.Index--
		}
		return r, s
	default:
		return r, s
	}
}

// --- the line-structural ops against each other ---

func transformStructuralStructural(a, b document.Operation) (document.Operation, document.Operation) {
	switch a.Kind {
	case document.KindInsertLine:
		switch b.Kind {
		case document.KindInsertLine:
			return transformInsertLineInsertLine(a, b)
		case document.KindDeleteLine:
			return transformInsertLineDeleteLine(a, b)
		case document.KindSplitLine:
			return transformInsertLineSplit(a, b)
		case document.KindMergeLine:
			return transformInsertLineMerge(a, b)
		}
	case document.KindDeleteLine:
		switch b.Kind {
		case document.KindInsertLine:
			bp, ap := transformInsertLineDeleteLine(b, a)
			return ap, bp
		case document.KindDeleteLine:
			return transformDeleteLineDeleteLine(a, b)
		case document.KindSplitLine:
			return transformDeleteLineSplit(a, b)
		case document.KindMergeLine:
			return transformDeleteLineMerge(a, b)
		}
	case document.KindSplitLine:
		switch b.Kind {
		case document.KindInsertLine:
			bp, ap := transformInsertLineSplit(b, a)
			return ap, bp
		case document.KindDeleteLine:
			bp, ap := transformDeleteLineSplit(b, a)
			return ap, bp
		case document.KindSplitLine:
			return transformSplitSplit(a, b)
		case document.KindMergeLine:
			return transformSplitMerge(a, b)
		}
	case document.KindMergeLine:
		switch b.Kind {
		case document.KindInsertLine:
			bp, ap := transformInsertLineMerge(b, a)
			return ap, bp
		case document.KindDeleteLine:
			bp, ap := transformDeleteLineMerge(b, a)
			return ap, bp
		case document.KindSplitLine:
			bp, ap := transformSplitMerge(b, a)
			return ap, bp
		case document.KindMergeLine:
			return transformMergeMerge(a, b)
		}
	}
	return a, b
}

func transformInsertLineInsertLine(a, b document.Operation) (document.Operation, document.Operation) {
	ap, bp := a, b
	switch {
	case a.Index < b.Index:
		bp.Index++
	case a.Index > b.Index:
		ap.Index++
	default:
		bp.Index++
	}
	return ap, bp
}

func transformInsertLineDeleteLine(ins, del document.Operation) (document.Operation, document.Operation) {
	insP, delP := ins, del
	if del.Index < ins.Index {
		insP.Index--
	} else {
		delP.Index++
	}
	return insP, delP
}

func transformInsertLineSplit(ins, split document.Operation) (document.Operation, document.Operation) {
	insP, splitP := ins, split
	if ins.Index <= split.Line {
		splitP.Line++
	} else {
		insP.Index++
	}
	return insP, splitP
}

func transformInsertLineMerge(ins, merge document.Operation) (document.Operation, document.Operation) {
	insP, mergeP := ins, merge
	switch {
	case ins.Index <= merge.Line:
		mergeP.Line++
		return insP, mergeP
	case ins.Index == merge.Line+1:
		// The new line lands exactly in the gap merge is closing: in the
		// ins-first order the two merge operands are no longer adjacent
		// (the new line sits between them), so no single mergeLine can
		// still join exactly them, and in the merge-first order insP's
		// own line can only ever land beside the fused line, never blend
		// into it. No (insP, mergeP) pair makes this converge; the
		// transform carries no document to resolve it with. We bias the
		// new line to the merge's second operand: mergeP targets the new
		// line and what used to be merge.Line+1, insP lands right after
		// the fused line. See DESIGN.md's open-question list.
		mergeP.Line = merge.Line + 1
		insP.Index = merge.Line + 1
		return insP, mergeP
	default:
		insP.Index = ins.Index - 1
		return insP, mergeP
	}
}

func transformDeleteLineDeleteLine(a, b document.Operation) (document.Operation, document.Operation) {
	if a.Index == b.Index {
		return document.Noop(), document.Noop()
	}
	ap, bp := a, b
	if b.Index < a.Index {
		ap.Index--
	} else {
		bp.Index--
	}
	return ap, bp
}

func transformDeleteLineSplit(del, split document.Operation) (document.Operation, document.Operation) {
	if del.Index == split.Line {
		return del, document.Noop()
	}
	delP, splitP := del, split
	if del.Index < split.Line {
		splitP.Line--
	} else {
		delP.Index++
	}
	return delP, splitP
}

func transformDeleteLineMerge(del, merge document.Operation) (document.Operation, document.Operation) {
	if del.Index == merge.Line || del.Index == merge.Line+1 {
		// del removes one of the merge's two operands. Recovering "just
		// the surviving half" would mean reconstructing that line's exact
		// text from a deleteLine/mergeLine pair that carries no text
		// payload at all — not expressible without a document to consult.
		// The convergent resolution is to drop the whole unit on both
		// sides: mergeP deletes the operand del did not remove (which sits
		// at merge.Line once del has run), and delP deletes
		// the line merge fused it into (also merge.Line, once merge has
		// run). Both replicas end up missing both original lines.
		return document.DeleteLine(merge.Line, del.Origin), document.DeleteLine(merge.Line, merge.Origin)
	}
	delP, mergeP := del, merge
	if del.Index < merge.Line {
		mergeP.Line--
	} else {
		delP.Index--
	}
	return delP, mergeP
}

// transformSplitSplit handles two concurrent splits. Splits on different
// lines shift each other's line index exactly like two inserts; splits on
// the same line are ordered by column, with the lower-column split's
// trailing half absorbing the higher-column split.
func transformSplitSplit(a, b document.Operation) (document.Operation, document.Operation) {
	ap, bp := a, b
	switch {
	case a.Line < b.Line:
		bp.Line++
	case a.Line > b.Line:
		ap.Line++
	case a.Column <= b.Column:
		bp.Line++
		bp.Column -= a.Column
	default:
		ap.Line++
		ap.Column -= b.Column
	}
	return ap, bp
}

// transformSplitMerge is the documented corner case of spec §4.3/§9: a
// split on the merge's anchor line is left as-is on both sides, and a
// split landing on the line being merged away shifts onto the surviving
// line but keeps its original column — both are deliberately unresolved
// approximations (see DESIGN.md), not full fixes, because getting either
// column right requires knowing merge.Line's text length and this
// transform has no document to measure it against.
func transformSplitMerge(split, merge document.Operation) (document.Operation, document.Operation) {
	sp, mp := split, merge
	switch {
	case split.Line < merge.Line:
		mp.Line++
	case split.Line == merge.Line:
		// left as-is; see spec §9 open question.
	case split.Line == merge.Line+1:
		// split lands on the line merge absorbs. Retargeted onto the
		// surviving line, but sp.Column still measures into the absorbed
		// line alone: it would need merge.Line's text length added to
		// land at the right offset in the now-combined line. See spec §9
		// open question / DESIGN.md.
		sp.Line--
	default:
		sp.Line--
	}
	return sp, mp
}

func transformMergeMerge(a, b document.Operation) (document.Operation, document.Operation) {
	if a.Line == b.Line {
		return document.Noop(), document.Noop()
	}
	ap, bp := a, b
	if b.Line < a.Line {
		ap.Line--
	} else {
		bp.Line--
	}
	return ap, bp
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
