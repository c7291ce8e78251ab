package textedit

import (
	"errors"
	"testing"

	"github.com/dgallion1/docedit/internal/doctree"
)

func TestLocate_InsertBoundaryLandsOnEarlierRun(t *testing.T) {
	p := &doctree.Paragraph{Children: []doctree.ParagraphChild{
		doctree.NewRun("Hello", nil),
		doctree.NewRun(" World", nil),
	}}

	// Offset 5 is the trailing boundary of the first run: inserts there
	// must land after "Hello", not before " World"'s first character.
	loc, err := Locate(p, 5, EditInsert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.ChildIndex != 0 {
		t.Errorf("expected first run to own insert offset 5, got child %d", loc.ChildIndex)
	}
	if loc.Offset != 5 {
		t.Errorf("expected local offset 5, got %d", loc.Offset)
	}
}

func TestLocate_DeleteBoundaryLandsOnLaterRun(t *testing.T) {
	p := &doctree.Paragraph{Children: []doctree.ParagraphChild{
		doctree.NewRun("Hello", nil),
		doctree.NewRun(" World", nil),
	}}

	loc, err := Locate(p, 5, EditDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.ChildIndex != 1 {
		t.Errorf("expected second run to own delete offset 5, got child %d", loc.ChildIndex)
	}
	if loc.Offset != 0 {
		t.Errorf("expected local offset 0, got %d", loc.Offset)
	}

	// Deleting the last character resolves inside the owning run.
	loc, err = Locate(p, 10, EditDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.ChildIndex != 1 || loc.Offset != 5 {
		t.Errorf("expected child 1 local 5, got child %d local %d", loc.ChildIndex, loc.Offset)
	}
}

func TestLocate_DescendsIntoWrapperAndHyperlink(t *testing.T) {
	p := &doctree.Paragraph{Children: []doctree.ParagraphChild{
		doctree.NewRun("ab", nil),
		&doctree.RevisionWrapper{Kind: doctree.RevisionInsert, ID: 1, Runs: []*doctree.Run{
			doctree.NewRun("cd", nil),
			doctree.NewRun("ef", nil),
		}},
		&doctree.Hyperlink{RelID: "rId3", Runs: []*doctree.Run{doctree.NewRun("gh", nil)}},
	}}

	loc, err := Locate(p, 5, EditDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := loc.Parent.(*doctree.RevisionWrapper); !ok {
		t.Fatalf("expected wrapper parent, got %T", loc.Parent)
	}
	if loc.RunIndex != 1 || loc.Offset != 1 {
		t.Errorf("expected run 1 local 1, got run %d local %d", loc.RunIndex, loc.Offset)
	}
	if got := loc.ParentOffset(); got != 3 {
		t.Errorf("expected parent offset 3, got %d", got)
	}

	loc, err = Locate(p, 7, EditDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := loc.Parent.(*doctree.Hyperlink); !ok {
		t.Fatalf("expected hyperlink parent, got %T", loc.Parent)
	}
	if loc.Offset != 1 {
		t.Errorf("expected local offset 1, got %d", loc.Offset)
	}
}

func TestLocate_SkipsBookmarkMarkers(t *testing.T) {
	p := &doctree.Paragraph{Children: []doctree.ParagraphChild{
		doctree.NewRun("ab", nil),
		&doctree.BookmarkStart{ID: 1, Name: "x"},
		&doctree.BookmarkEnd{ID: 1},
		doctree.NewRun("cd", nil),
	}}

	loc, err := Locate(p, 2, EditDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.ChildIndex != 3 || loc.Offset != 0 {
		t.Errorf("expected child 3 local 0, got child %d local %d", loc.ChildIndex, loc.Offset)
	}
}

func TestLocate_EmptyParagraphReturnsNoRun(t *testing.T) {
	p := &doctree.Paragraph{}
	loc, err := Locate(p, 0, EditInsert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Run != nil {
		t.Errorf("expected nil run for empty paragraph, got %+v", loc.Run)
	}
}

func TestLocate_OutOfRange(t *testing.T) {
	p := &doctree.Paragraph{Children: []doctree.ParagraphChild{doctree.NewRun("abc", nil)}}

	if _, err := Locate(p, -1, EditInsert); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange for -1, got %v", err)
	}
	if _, err := Locate(p, 4, EditInsert); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange for insert past end, got %v", err)
	}
	// Insert at exactly the end is valid; delete there is not.
	if _, err := Locate(p, 3, EditInsert); err != nil {
		t.Errorf("expected insert at end to be valid, got %v", err)
	}
	if _, err := Locate(p, 3, EditDelete); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange for delete at end, got %v", err)
	}
}

func TestLocate_OffsetRoundTrip(t *testing.T) {
	p := &doctree.Paragraph{Children: []doctree.ParagraphChild{
		doctree.NewRun("ab\tc", nil),
		&doctree.RevisionWrapper{Kind: doctree.RevisionInsert, ID: 1, Runs: []*doctree.Run{doctree.NewRun("de", nil)}},
		doctree.NewRun("f", nil),
	}}
	total := p.Length()

	for i := 0; i <= total; i++ {
		loc, err := Locate(p, i, EditInsert)
		if err != nil {
			t.Fatalf("offset %d: %v", i, err)
		}
		// Reconstruct the global offset from the location: preceding
		// children plus the run-local offset.
		cum := 0
		for _, c := range p.Children[:loc.ChildIndex] {
			cum += doctree.ChildLength(c)
		}
		if got := cum + loc.ParentOffset(); got != i {
			t.Errorf("offset %d round-tripped to %d", i, got)
		}
	}
}
