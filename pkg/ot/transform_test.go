package ot

import (
	"testing"

	"github.com/shiv248/coedit/pkg/document"
)

// converge applies a then bPrime, and b then aPrime, and asserts both paths
// reach the same document text — the TP1 convergence property every pair
// in this file is checked against.
func converge(t *testing.T, doc *document.Document, a, b document.Operation) {
	t.Helper()
	aPrime, bPrime := Transform(a, b)

	left := document.Apply(document.Apply(doc, a), bPrime)
	right := document.Apply(document.Apply(doc, b), aPrime)

	if left.Text() != right.Text() {
		t.Fatalf("convergence failed: apply(apply(D,a),b')=%q, apply(apply(D,b),a')=%q", left.Text(), right.Text())
	}
}

func TestTransformInsertInsertSamePositionConverges(t *testing.T) {
	doc := document.FromText("d", "hello")
	a := document.InsertText(0, 0, "AAA", document.OriginRemote)
	b := document.InsertText(0, 0, "BBB", document.OriginRemote)
	converge(t, doc, a, b)

	aPrime, bPrime := Transform(a, b)
	if aPrime.Column != 0 {
		t.Fatalf("canonical side a must keep its position, got column %d", aPrime.Column)
	}
	if bPrime.Column != 3 {
		t.Fatalf("yielding side b must shift past a's insert, got column %d", bPrime.Column)
	}
}

func TestTransformOverlappingDeletesConverge(t *testing.T) {
	doc := document.FromText("d", "0123456789")
	a := document.DeleteText(0, 2, 5, document.OriginRemote) // removes "23456"
	b := document.DeleteText(0, 4, 5, document.OriginRemote) // removes "45678"
	converge(t, doc, a, b)
}

// An insertText strictly inside a concurrent deleteText's range moves to the
// delete's start column and the delete passes through unchanged. The two
// application orders then disagree (inserting first lets the unchanged
// delete remove the inserted text instead of part of the original range),
// so this asserts the deterministic transform rather than TP1.
func TestTransformInsertInsideDeleteRangeMovesToDeleteStart(t *testing.T) {
	ins := document.InsertText(0, 4, "XYZ", document.OriginRemote)
	del := document.DeleteText(0, 2, 5, document.OriginRemote)

	insP, delP := Transform(ins, del)

	if insP.Column != del.Column {
		t.Fatalf("expected insert moved to the delete's start column %d, got %d", del.Column, insP.Column)
	}
	if delP != del {
		t.Fatalf("expected delete unchanged, got %+v", delP)
	}
}

func TestTransformTextVsReplaceLineCollapsesTextToNoop(t *testing.T) {
	doc := document.FromText("d", "hello")
	edit := document.InsertText(0, 2, "XX", document.OriginRemote)
	replace := document.ReplaceLine(0, "replaced", document.OriginRemote)
	converge(t, doc, edit, replace)

	editPrime, replacePrime := Transform(edit, replace)
	if !editPrime.IsNoop() {
		t.Fatalf("expected text op to collapse to noop against a same-line replace")
	}
	if replacePrime != replace {
		t.Fatalf("replace must pass through a conflicting text op unchanged")
	}
}

func TestTransformTwoDeleteLineAtSameIndexBothNoop(t *testing.T) {
	doc := document.FromText("d", "a\nb\nc")
	a := document.DeleteLine(1, document.OriginRemote)
	b := document.DeleteLine(1, document.OriginRemote)
	converge(t, doc, a, b)

	aPrime, bPrime := Transform(a, b)
	if !aPrime.IsNoop() || !bPrime.IsNoop() {
		t.Fatalf("expected both deleteLine ops at the same index to cancel to noop")
	}
}

func TestTransformInsertLineShiftsConcurrentInsertLine(t *testing.T) {
	doc := document.FromText("d", "a\nb\nc")
	a := document.InsertLine(1, "x", document.OriginRemote)
	b := document.InsertLine(1, "y", document.OriginRemote)
	converge(t, doc, a, b)
}

// Split landing on the line a concurrent merge absorbs is retargeted onto
// the surviving line, but the column isn't re-offset into the fused text
// (the transform has no document to measure merge.Line's length against),
// so this is a documented approximation, not a convergence guarantee: in
// general it only converges when the merge's first line is empty. Assert
// the chosen deterministic
// transform, not the (generally false) TP1 equation.
func TestTransformSplitLineVsMergeLineOnMergedAwayLineRetargets(t *testing.T) {
	split := document.SplitLine(1, 1, document.OriginRemote) // splits merge's second line
	merge := document.MergeLine(0, document.OriginRemote)    // merges line 0 and line 1

	splitP, mergeP := Transform(split, merge)

	if splitP.Line != 0 {
		t.Fatalf("expected split retargeted to line 0, got %d", splitP.Line)
	}
	if splitP.Column != split.Column {
		t.Fatalf("expected split column left unadjusted (documented approximation), got %d", splitP.Column)
	}
	if mergeP.Line != merge.Line {
		t.Fatalf("expected merge line unchanged, got %d", mergeP.Line)
	}
}

// An insertLine landing exactly in the gap a concurrent mergeLine is
// closing can't converge under any choice of transformed ops (the new
// line is either stuck between the merge's two operands, or merge fuses
// it with one of them inline — neither insertLine nor mergeLine can
// express "new standalone line beside an untouched fused line" from both
// starting points at once). This asserts the chosen deterministic bias
// rather than a convergence property; see transformInsertLineMerge.
func TestTransformInsertLineAtMergeBoundaryBiasesToSecondOperand(t *testing.T) {
	ins := document.InsertLine(2, "X", document.OriginRemote)
	merge := document.MergeLine(1, document.OriginRemote)

	insP, mergeP := Transform(ins, merge)

	if insP.Index != merge.Line+1 {
		t.Fatalf("expected insert retargeted to land after the fused line, got index %d", insP.Index)
	}
	if mergeP.Line != merge.Line+1 {
		t.Fatalf("expected merge retargeted onto the new line and the old second operand, got line %d", mergeP.Line)
	}
}

// Deleting one of mergeLine's two operands can't recover "just the
// surviving half" of the fused line (deleteLine/mergeLine carry no text,
// so the transform has nothing to reconstruct it from). The convergent
// resolution drops the whole unit on both sides instead of silently
// deleting the wrong line — this one DOES satisfy TP1, unlike the two
// merge-boundary cases above.
func TestTransformDeleteLineVsMergeLineOnEitherOperandDropsBothConverges(t *testing.T) {
	doc := document.FromText("d", "a\nb\nc\nz")
	merge := document.MergeLine(1, document.OriginRemote)

	firstOperand := document.DeleteLine(1, document.OriginRemote)
	converge(t, doc, firstOperand, merge)

	secondOperand := document.DeleteLine(2, document.OriginRemote)
	converge(t, doc, secondOperand, merge)
}

func TestTransformDeleteLineDegradesTextOpOnDeletedLine(t *testing.T) {
	doc := document.FromText("d", "a\nb\nc")
	text := document.InsertText(1, 0, "X", document.OriginRemote)
	del := document.DeleteLine(1, document.OriginRemote)
	converge(t, doc, text, del)

	textPrime, _ := Transform(text, del)
	if !textPrime.IsNoop() {
		t.Fatalf("expected text op on a concurrently deleted line to collapse to noop")
	}
}

func TestTransformOpsLiftsOverBatches(t *testing.T) {
	doc := document.FromText("d", "hello")
	a := []document.Operation{document.InsertText(0, 0, "AAA", document.OriginRemote)}
	b := []document.Operation{document.InsertText(0, 0, "BBB", document.OriginRemote)}

	aPrime, bPrime := TransformOps(a, b)

	left := document.ApplyAll(document.ApplyAll(doc, a), bPrime)
	right := document.ApplyAll(document.ApplyAll(doc, b), aPrime)
	if left.Text() != right.Text() {
		t.Fatalf("batch transform failed to converge: %q vs %q", left.Text(), right.Text())
	}
}

func TestTransformOpsHandlesMultiOpBatchesOnBothSides(t *testing.T) {
	doc := document.FromText("d", "0123456789")
	a := []document.Operation{
		document.InsertText(0, 0, "A", document.OriginRemote),
		document.DeleteText(0, 5, 2, document.OriginRemote),
	}
	b := []document.Operation{
		document.InsertText(0, 3, "B", document.OriginRemote),
	}

	aPrime, bPrime := TransformOps(a, b)

	left := document.ApplyAll(document.ApplyAll(doc, a), bPrime)
	right := document.ApplyAll(document.ApplyAll(doc, b), aPrime)
	if left.Text() != right.Text() {
		t.Fatalf("batch transform failed to converge: %q vs %q", left.Text(), right.Text())
	}
}
