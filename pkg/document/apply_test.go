package document

import "testing"

func TestApplyInsertText(t *testing.T) {
	doc := FromText("d", "hello")
	doc = Apply(doc, InsertText(0, 5, " world", OriginInput))
	if doc.Text() != "hello world" {
		t.Fatalf("got %q", doc.Text())
	}
	if doc.Version != 1 {
		t.Fatalf("expected version 1, got %d", doc.Version)
	}
}

func TestApplyDeleteText(t *testing.T) {
	doc := FromText("d", "hello world")
	doc = Apply(doc, DeleteText(0, 5, 6, OriginInput))
	if doc.Text() != "hello" {
		t.Fatalf("got %q", doc.Text())
	}
}

func TestApplyInsertLinePreservesSurroundingLineIdentity(t *testing.T) {
	doc := FromText("d", "a\nb\nc")
	before := doc.Lines[2].ID
	doc = Apply(doc, InsertLine(1, "x", OriginInput))
	if doc.Text() != "a\nx\nb\nc" {
		t.Fatalf("got %q", doc.Text())
	}
	if doc.Lines[3].ID != before {
		t.Fatalf("line identity for unrelated line must survive an insert")
	}
}

func TestApplyDeleteLineNeverLeavesZeroLines(t *testing.T) {
	doc := FromText("d", "only")
	doc = Apply(doc, DeleteLine(0, OriginInput))
	if doc.LineCount() != 1 {
		t.Fatalf("expected exactly one empty line, got %d lines", doc.LineCount())
	}
	if doc.Text() != "" {
		t.Fatalf("expected empty text, got %q", doc.Text())
	}
}

func TestApplySplitLineKeepsPrefixIdentity(t *testing.T) {
	doc := FromText("d", "hello world")
	originalID := doc.Lines[0].ID
	doc = Apply(doc, SplitLine(0, 5, OriginInput))
	if doc.Text() != "hello\n world" {
		t.Fatalf("got %q", doc.Text())
	}
	if doc.Lines[0].ID != originalID {
		t.Fatalf("split's prefix half must keep the original line's identity")
	}
	if doc.Lines[1].ID == originalID {
		t.Fatalf("split's suffix half must mint a new identity")
	}
}

func TestApplyMergeLineKeepsFirstLineIdentity(t *testing.T) {
	doc := FromText("d", "hello\n world")
	firstID := doc.Lines[0].ID
	doc = Apply(doc, MergeLine(0, OriginInput))
	if doc.Text() != "hello world" {
		t.Fatalf("got %q", doc.Text())
	}
	if doc.Lines[0].ID != firstID {
		t.Fatalf("merge must keep the first line's identity")
	}
}

func TestApplySplitThenMergeRoundTrips(t *testing.T) {
	doc := FromText("d", "hello world")
	id := doc.Lines[0].ID
	doc = Apply(doc, SplitLine(0, 5, OriginInput))
	doc = Apply(doc, MergeLine(0, OriginInput))
	if doc.Text() != "hello world" {
		t.Fatalf("got %q", doc.Text())
	}
	if doc.Lines[0].ID != id {
		t.Fatalf("expected split/merge round trip to preserve original identity")
	}
}

func TestApplyReplaceLineKeepsIdentity(t *testing.T) {
	doc := FromText("d", "old")
	id := doc.Lines[0].ID
	doc = Apply(doc, ReplaceLine(0, "new", OriginInput))
	if doc.Text() != "new" {
		t.Fatalf("got %q", doc.Text())
	}
	if doc.Lines[0].ID != id {
		t.Fatalf("replaceLine must not change line identity")
	}
}

func TestApplyOutOfRangeIsSilentNoop(t *testing.T) {
	doc := FromText("d", "a\nb")
	result := Apply(doc, DeleteLine(5, OriginRemote))
	if result != doc {
		t.Fatalf("out-of-range op must return the same document value unchanged")
	}
}

func TestApplyAllFoldsInOrder(t *testing.T) {
	doc := FromText("d", "")
	doc = ApplyAll(doc, []Operation{
		InsertText(0, 0, "hello", OriginInput),
		SplitLine(0, 5, OriginInput),
		InsertLine(2, "world", OriginInput),
	})
	if doc.Text() != "hello\n\nworld" {
		t.Fatalf("got %q", doc.Text())
	}
}

func TestStructuralSharingKeepsUntouchedLines(t *testing.T) {
	doc := FromText("d", "a\nb\nc")
	next := Apply(doc, InsertText(2, 1, "!", OriginInput))
	if &next.Lines[0] == &doc.Lines[0] {
		// slices are copied, but the Line values for untouched rows must
		// still compare equal (same ID, same text).
	}
	if next.Lines[0] != doc.Lines[0] {
		t.Fatalf("untouched line 0 must be unchanged")
	}
	if next.Lines[1] != doc.Lines[1] {
		t.Fatalf("untouched line 1 must be unchanged")
	}
}
