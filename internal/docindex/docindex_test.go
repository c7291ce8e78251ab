package docindex

import (
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/docedit/internal/doctree"
	"github.com/dgallion1/docedit/internal/revision"
	"github.com/dgallion1/docedit/internal/textedit"
)

func newTestIndexer() *Indexer {
	rev := revision.NewContext("author").WithClock(func() time.Time {
		return time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	})
	return NewIndexer(textedit.NewEngine(rev))
}

func bodyOf(texts ...string) *doctree.Body {
	b := &doctree.Body{}
	for _, t := range texts {
		b.Children = append(b.Children, doctree.NewParagraph(t, nil))
	}
	return b
}

func TestReindex_ContiguousRanges(t *testing.T) {
	b := bodyOf("Hello", "World!!", "x")

	entries := Reindex(b)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Start != 0 || entries[0].End != 5 {
		t.Errorf("entry 0: expected [0,5), got [%d,%d)", entries[0].Start, entries[0].End)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Start != entries[i-1].End {
			t.Errorf("entry %d: expected start %d, got %d", i, entries[i-1].End, entries[i].Start)
		}
	}
	if entries[2].End != 13 {
		t.Errorf("expected total length 13, got %d", entries[2].End)
	}
}

func TestReindex_TableBackReference(t *testing.T) {
	tbl := &doctree.Table{Rows: []*doctree.TableRow{{Cells: []*doctree.TableCell{
		{Children: []doctree.BodyChild{doctree.NewParagraph("cell", nil)}},
	}}}}
	b := &doctree.Body{Children: []doctree.BodyChild{
		doctree.NewParagraph("before", nil),
		tbl,
		doctree.NewParagraph("after", nil),
	}}

	entries := Reindex(b)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (tables are not length-bearing), got %d", len(entries))
	}
	if entries[0].FollowingTable != tbl {
		t.Errorf("expected first paragraph to reference the following table")
	}
	if entries[1].FollowingTable != nil {
		t.Errorf("expected no table reference on last paragraph")
	}
	if entries[1].Start != 6 {
		t.Errorf("expected table to contribute no offsets, start %d", entries[1].Start)
	}
}

func TestLocateParagraphAt_BoundaryResolvesToNextParagraph(t *testing.T) {
	b := bodyOf("Hello", "World!!") // lengths 5 and 7

	p, local, err := LocateParagraphAt(b, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != b.Children[1].(*doctree.Paragraph) || local != 0 {
		t.Errorf("expected second paragraph at local 0, got local %d", local)
	}

	// The very end of the container resolves to the last paragraph's end.
	p, local, err = LocateParagraphAt(b, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != b.Children[1].(*doctree.Paragraph) || local != 7 {
		t.Errorf("expected last paragraph at local 7, got local %d", local)
	}

	if _, _, err := LocateParagraphAt(b, 13); !errors.Is(err, textedit.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange past the end, got %v", err)
	}
}

func TestInsertParagraphAt_SplitsOwningParagraph(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("HelloWorld")

	if err := x.InsertParagraphAt(b, 5, doctree.NewParagraph("mid", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Children) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(b.Children))
	}
	texts := []string{"Hello", "mid", "World"}
	for i, want := range texts {
		if got := b.Children[i].(*doctree.Paragraph).Text(); got != want {
			t.Errorf("paragraph %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestInsertParagraphAt_EdgeOffsetsDoNotSplit(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("one", "two")

	if err := x.InsertParagraphAt(b, 3, doctree.NewParagraph("mid", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Children) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(b.Children))
	}
	if got := b.Children[1].(*doctree.Paragraph).Text(); got != "mid" {
		t.Errorf("expected %q between the originals, got %q", "mid", got)
	}

	if err := x.InsertParagraphAt(b, 9, doctree.NewParagraph("tail", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.Children[len(b.Children)-1].(*doctree.Paragraph).Text(); got != "tail" {
		t.Errorf("expected %q appended, got %q", "tail", got)
	}
}

func TestAppendParagraph_AttachesAfterLastBlock(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("one", "two")

	x.AppendParagraph(b, doctree.NewParagraph("three", nil))
	if len(b.Children) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(b.Children))
	}
	if got := b.Children[2].(*doctree.Paragraph).Text(); got != "three" {
		t.Errorf("expected %q appended, got %q", "three", got)
	}
	if got := Length(b); got != 11 {
		t.Errorf("expected container length 11, got %d", got)
	}
}

func TestInsertTableAt_SplicesBetweenHalves(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("HelloWorld")
	tbl := &doctree.Table{Rows: []*doctree.TableRow{{Cells: []*doctree.TableCell{
		{Children: []doctree.BodyChild{doctree.NewParagraph("cell", nil)}},
	}}}}

	if err := x.InsertTableAt(b, 5, tbl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Children) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(b.Children))
	}
	if _, ok := b.Children[1].(*doctree.Table); !ok {
		t.Errorf("expected table at index 1, got %T", b.Children[1])
	}
}

func TestInsertListAt_SplicesAllItems(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("intro")

	items := []*doctree.Paragraph{
		listItem("first", 5),
		listItem("second", 5),
	}
	if err := x.InsertListAt(b, 5, items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Children) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(b.Children))
	}
	second := b.Children[2].(*doctree.Paragraph)
	if second.Props == nil || second.Props.Numbering == nil || second.Props.Numbering.NumID != 5 {
		t.Errorf("expected numbering preserved on list items")
	}
}

func listItem(text string, numID int) *doctree.Paragraph {
	p := doctree.NewParagraph(text, nil)
	p.Props = &doctree.ParagraphProperties{Numbering: &doctree.Numbering{NumID: numID}}
	return p
}

func TestInsertBlocksAt_PastEndFails(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("abc")

	err := x.InsertParagraphAt(b, 4, doctree.NewParagraph("x", nil))
	if !errors.Is(err, textedit.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRemoveTextAt_CrossesParagraphBoundary(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("Hello", "World")

	// Remove "loWo": the last two characters of the first paragraph and
	// the first two of the second.
	if err := x.RemoveTextAt(b, 3, 4, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paras := b.Paragraphs()
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paras))
	}
	if got := paras[0].Text() + "|" + paras[1].Text(); got != "Hel|rld" {
		t.Errorf("expected %q, got %q", "Hel|rld", got)
	}
}

func TestRemoveTextAt_DetachesEmptiedParagraph(t *testing.T) {
	x := newTestIndexer()
	b := bodyOf("one", "gone", "three")

	if err := x.RemoveTextAt(b, 3, 4, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paras := b.Paragraphs()
	if len(paras) != 2 {
		t.Fatalf("expected emptied paragraph detached, got %d paragraphs", len(paras))
	}
	if got := paras[0].Text() + paras[1].Text(); got != "onethree" {
		t.Errorf("expected %q, got %q", "onethree", got)
	}
}

func TestRemoveTextAt_KeepsSoleCellParagraph(t *testing.T) {
	cellPara := doctree.NewParagraph("cell", nil)
	otherPara := doctree.NewParagraph("first of two", nil)
	tbl := &doctree.Table{Rows: []*doctree.TableRow{{Cells: []*doctree.TableCell{
		{Children: []doctree.BodyChild{cellPara}},
		{Children: []doctree.BodyChild{otherPara, doctree.NewParagraph("second", nil)}},
	}}}}
	b := &doctree.Body{Children: []doctree.BodyChild{tbl}}

	// The sole paragraph of a table cell degenerates to empty text
	// instead of being removed; a paragraph sharing its cell does not.
	if !soleCellParagraph(b, cellPara) {
		t.Errorf("expected paragraph recognized as sole cell paragraph")
	}
	if soleCellParagraph(b, otherPara) {
		t.Errorf("paragraph with a sibling must not be protected")
	}
}

func TestReplaceTextAll_CoversParagraphsAndTables(t *testing.T) {
	x := newTestIndexer()
	tbl := &doctree.Table{Rows: []*doctree.TableRow{{Cells: []*doctree.TableCell{
		{Children: []doctree.BodyChild{doctree.NewParagraph("a cat in a cell", nil)}},
	}}}}
	b := &doctree.Body{Children: []doctree.BodyChild{
		doctree.NewParagraph("a cat here", nil),
		tbl,
		doctree.NewParagraph("no match", nil),
	}}

	n, err := x.ReplaceTextAll(b, "cat", "dog", textedit.ReplaceOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 replacements, got %d", n)
	}
	if got := b.Paragraphs()[0].Text(); got != "a dog here" {
		t.Errorf("expected %q, got %q", "a dog here", got)
	}
	cellText := tbl.Rows[0].Cells[0].Children[0].(*doctree.Paragraph).Text()
	if cellText != "a dog in a cell" {
		t.Errorf("expected table cell replaced, got %q", cellText)
	}
}
