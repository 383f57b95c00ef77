package position

import (
	"testing"

	"github.com/shiv248/coedit/pkg/document"
)

func TestMapInsertTextShiftsPositionsAfterInsert(t *testing.T) {
	op := document.InsertText(0, 3, "XYZ", document.OriginRemote)
	got := Map(document.Position{Line: 0, Column: 5}, op)
	want := document.Position{Line: 0, Column: 8}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapInsertTextLeavesPositionBeforeInsertUnchanged(t *testing.T) {
	op := document.InsertText(0, 5, "XYZ", document.OriginRemote)
	got := Map(document.Position{Line: 0, Column: 2}, op)
	want := document.Position{Line: 0, Column: 2}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapDeleteTextClampsPositionInsideDeletedRange(t *testing.T) {
	op := document.DeleteText(0, 2, 5, document.OriginRemote)
	got := Map(document.Position{Line: 0, Column: 4}, op)
	want := document.Position{Line: 0, Column: 2}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapInsertLineShiftsLaterLinesDown(t *testing.T) {
	op := document.InsertLine(1, "new", document.OriginRemote)
	got := Map(document.Position{Line: 2, Column: 4}, op)
	want := document.Position{Line: 3, Column: 4}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapDeleteLineResetsColumnOnItsOwnLine(t *testing.T) {
	op := document.DeleteLine(1, document.OriginRemote)
	got := Map(document.Position{Line: 1, Column: 7}, op)
	want := document.Position{Line: 1, Column: 0}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapSplitLineRelocatesSuffixPosition(t *testing.T) {
	op := document.SplitLine(0, 5, document.OriginRemote)
	got := Map(document.Position{Line: 0, Column: 8}, op)
	want := document.Position{Line: 1, Column: 3}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// TestMapMergeLineKeepsColumnOnMergedAwayLine documents the stateless
// limitation: a position on op.Line+1 keeps its raw column instead of being
// offset by op.Line's text length.
func TestMapMergeLineKeepsColumnOnMergedAwayLine(t *testing.T) {
	op := document.MergeLine(0, document.OriginRemote)
	got := Map(document.Position{Line: 1, Column: 3}, op)
	want := document.Position{Line: 0, Column: 3}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapRangeMapsBothEndpoints(t *testing.T) {
	op := document.InsertText(0, 0, "AB", document.OriginRemote)
	r := document.Range{
		Anchor: document.Position{Line: 0, Column: 1},
		Focus:  document.Position{Line: 0, Column: 3},
	}
	got := MapRange(r, op)
	want := document.Range{
		Anchor: document.Position{Line: 0, Column: 3},
		Focus:  document.Position{Line: 0, Column: 5},
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapThroughOpsFoldsSequentially(t *testing.T) {
	ops := []document.Operation{
		document.InsertText(0, 0, "hello ", document.OriginRemote),
		document.SplitLine(0, 6, document.OriginRemote),
	}
	got := MapThroughOps(document.Position{Line: 0, Column: 8}, ops)
	want := document.Position{Line: 1, Column: 8}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMapSelectionThroughPreservesPrimaryIndex(t *testing.T) {
	sel := document.MultiSelection{
		Ranges: []document.Range{
			{Anchor: document.Position{Line: 0, Column: 0}, Focus: document.Position{Line: 0, Column: 0}},
			{Anchor: document.Position{Line: 0, Column: 5}, Focus: document.Position{Line: 0, Column: 5}},
		},
		Primary: 1,
	}
	ops := []document.Operation{document.InsertText(0, 0, "X", document.OriginRemote)}
	got := MapSelectionThrough(sel, ops)
	if got.Primary != 1 {
		t.Fatalf("expected primary index to survive mapping, got %d", got.Primary)
	}
	if got.Ranges[1].Anchor.Column != 6 {
		t.Fatalf("expected primary range to shift, got %+v", got.Ranges[1])
	}
}
