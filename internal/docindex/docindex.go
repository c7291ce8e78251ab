// Package docindex maps container-level character offsets onto the
// paragraphs that own them. Paragraph ranges are computed, never stored:
// every offset operation reindexes first, because an edit in one paragraph
// shifts the range of every paragraph after it.
package docindex

import (
	"fmt"

	"github.com/dgallion1/docedit/internal/doctree"
	"github.com/dgallion1/docedit/internal/textedit"
)

// Entry is one paragraph's half-open offset range [Start, End) in its
// container. Tables contribute no length to the offset space; a paragraph
// immediately followed by a table keeps a back-reference to it.
type Entry struct {
	Para  *doctree.Paragraph
	Start int
	End   int
	// FollowingTable is the table directly after this paragraph, nil
	// otherwise.
	FollowingTable *doctree.Table
}

// Reindex assigns contiguous offset ranges to the body's paragraphs in a
// single forward pass.
func Reindex(b *doctree.Body) []Entry {
	var entries []Entry
	cum := 0
	for i, child := range b.Children {
		p, ok := child.(*doctree.Paragraph)
		if !ok {
			continue
		}
		e := Entry{Para: p, Start: cum, End: cum + p.Length()}
		if i+1 < len(b.Children) {
			if tbl, ok := b.Children[i+1].(*doctree.Table); ok {
				e.FollowingTable = tbl
			}
		}
		entries = append(entries, e)
		cum = e.End
	}
	return entries
}

// Length is the total character length of the body's paragraph sequence.
func Length(b *doctree.Body) int {
	n := 0
	for _, p := range b.Paragraphs() {
		n += p.Length()
	}
	return n
}

// LocateParagraphAt resolves a container-level offset to the owning
// paragraph and a paragraph-local offset. An offset equal to a paragraph's
// End belongs to the next paragraph's start, except at the very end of the
// container, where it resolves to the last paragraph's end (the append
// case).
func LocateParagraphAt(b *doctree.Body, offset int) (*doctree.Paragraph, int, error) {
	entries := Reindex(b)
	if len(entries) == 0 {
		return nil, 0, fmt.Errorf("locate in container with no paragraphs: %w", textedit.ErrIndexOutOfRange)
	}
	total := entries[len(entries)-1].End
	if offset < 0 || offset > total {
		return nil, 0, fmt.Errorf("locate offset %d in container of length %d: %w", offset, total, textedit.ErrIndexOutOfRange)
	}
	for _, e := range entries {
		if offset < e.End {
			return e.Para, offset - e.Start, nil
		}
	}
	last := entries[len(entries)-1]
	return last.Para, offset - last.Start, nil
}

// Indexer applies block-level and cross-paragraph edits to a body.
type Indexer struct {
	engine *textedit.Engine
}

// NewIndexer returns an indexer splitting paragraphs through engine.
func NewIndexer(engine *textedit.Engine) *Indexer {
	return &Indexer{engine: engine}
}

// Engine exposes the paragraph-level engine for callers that already hold
// a located paragraph.
func (x *Indexer) Engine() *textedit.Engine {
	return x.engine
}

// InsertParagraphAt splices a new paragraph into the body at a container
// offset, splitting the owning paragraph's run sequence at the local
// offset: [leftHalf, newParagraph, rightHalf] replace the original.
func (x *Indexer) InsertParagraphAt(b *doctree.Body, offset int, newP *doctree.Paragraph) error {
	return x.insertBlocksAt(b, offset, newP)
}

// AppendParagraph attaches a paragraph after the last block of the body.
func (x *Indexer) AppendParagraph(b *doctree.Body, newP *doctree.Paragraph) {
	b.Children = append(b.Children, newP)
}

// InsertTableAt splices a table into the body at a container offset.
func (x *Indexer) InsertTableAt(b *doctree.Body, offset int, tbl *doctree.Table) error {
	return x.insertBlocksAt(b, offset, tbl)
}

// InsertListAt splices a sequence of list paragraphs (paragraphs carrying
// numbering properties) at a container offset.
func (x *Indexer) InsertListAt(b *doctree.Body, offset int, items []*doctree.Paragraph) error {
	blocks := make([]doctree.BodyChild, len(items))
	for i, p := range items {
		blocks[i] = p
	}
	return x.insertBlocksAt(b, offset, blocks...)
}

// InsertBlocksAt splices arbitrary block content at a container offset.
func (x *Indexer) InsertBlocksAt(b *doctree.Body, offset int, blocks ...doctree.BodyChild) error {
	return x.insertBlocksAt(b, offset, blocks...)
}

func (x *Indexer) insertBlocksAt(b *doctree.Body, offset int, blocks ...doctree.BodyChild) error {
	if len(b.Children) == 0 {
		if offset != 0 {
			return fmt.Errorf("insert at %d in empty container: %w", offset, textedit.ErrIndexOutOfRange)
		}
		b.Children = append(b.Children, blocks...)
		return nil
	}

	target, local, err := LocateParagraphAt(b, offset)
	if err != nil {
		return err
	}
	idx := childIndex(b, target)

	// Splitting at a paragraph edge degenerates into a plain insertion
	// before or after it; no empty half paragraphs are spliced.
	switch {
	case local == 0:
		spliceBody(b, idx, prependBlocks(blocks, nil, target)...)
	case local == target.Length():
		spliceBody(b, idx, prependBlocks(blocks, target, nil)...)
	default:
		left, right, err := x.engine.SplitParagraph(target, local)
		if err != nil {
			return err
		}
		spliceBody(b, idx, prependBlocks(blocks, left, right)...)
	}
	return nil
}

// InsertTextAt inserts text at a container offset.
func (x *Indexer) InsertTextAt(b *doctree.Body, offset int, text string, opts textedit.InsertOptions) error {
	p, local, err := LocateParagraphAt(b, offset)
	if err != nil {
		return err
	}
	return x.engine.InsertText(p, local, text, opts)
}

// RemoveTextAt removes count characters starting at a container offset,
// crossing paragraph boundaries. Paragraph marks are not part of the
// offset space, so the count covers characters only. A paragraph emptied
// by an untracked removal is detached, unless it is the sole paragraph of
// a table cell, which degenerates to empty text instead.
func (x *Indexer) RemoveTextAt(b *doctree.Body, offset, count int, trackChanges bool) error {
	if offset < 0 || count < 0 || offset+count > Length(b) {
		return fmt.Errorf("remove [%d,%d) in container of length %d: %w", offset, offset+count, Length(b), textedit.ErrIndexOutOfRange)
	}

	remaining := count
	cursor := offset
	for remaining > 0 {
		p, local, err := LocateParagraphAt(b, cursor)
		if err != nil {
			return err
		}
		if local == p.Length() {
			// Cursor rests on a paragraph boundary at container end only
			// when validation was violated.
			return fmt.Errorf("remove ran past container content: %w", textedit.ErrInvariant)
		}
		take := p.Length() - local
		if take > remaining {
			take = remaining
		}
		before := p.Length()
		if err := x.engine.RemoveText(p, local, take, trackChanges); err != nil {
			return err
		}
		removed := before - p.Length()
		cursor += take - removed
		remaining -= take

		if p.Length() == 0 && !p.HasContent() && !soleCellParagraph(b, p) {
			spliceBody(b, childIndex(b, p))
		}
	}
	return nil
}

// ReplaceTextAll runs a find/replace over every paragraph of the body and
// returns the total number of replacements.
func (x *Indexer) ReplaceTextAll(b *doctree.Body, pattern, replacement string, opts textedit.ReplaceOptions) (int, error) {
	total := 0
	for _, p := range b.Paragraphs() {
		n, err := x.engine.ReplaceText(p, pattern, replacement, opts)
		if err != nil {
			return total, err
		}
		total += n
	}
	for _, child := range b.Children {
		tbl, ok := child.(*doctree.Table)
		if !ok {
			continue
		}
		n, err := x.replaceInTable(tbl, pattern, replacement, opts)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (x *Indexer) replaceInTable(tbl *doctree.Table, pattern, replacement string, opts textedit.ReplaceOptions) (int, error) {
	total := 0
	for _, row := range tbl.Rows {
		for _, cell := range row.Cells {
			for _, child := range cell.Children {
				switch v := child.(type) {
				case *doctree.Paragraph:
					n, err := x.engine.ReplaceText(v, pattern, replacement, opts)
					if err != nil {
						return total, err
					}
					total += n
				case *doctree.Table:
					n, err := x.replaceInTable(v, pattern, replacement, opts)
					if err != nil {
						return total, err
					}
					total += n
				}
			}
		}
	}
	return total, nil
}

func childIndex(b *doctree.Body, p *doctree.Paragraph) int {
	for i, c := range b.Children {
		if c == doctree.BodyChild(p) {
			return i
		}
	}
	return -1
}

// spliceBody replaces the child at index i with repl.
func spliceBody(b *doctree.Body, i int, repl ...doctree.BodyChild) {
	out := make([]doctree.BodyChild, 0, len(b.Children)+len(repl)-1)
	out = append(out, b.Children[:i]...)
	out = append(out, repl...)
	out = append(out, b.Children[i+1:]...)
	b.Children = out
}

// prependBlocks assembles [left, blocks..., right] dropping nil halves.
func prependBlocks(blocks []doctree.BodyChild, left, right *doctree.Paragraph) []doctree.BodyChild {
	out := make([]doctree.BodyChild, 0, len(blocks)+2)
	if left != nil {
		out = append(out, left)
	}
	out = append(out, blocks...)
	if right != nil {
		out = append(out, right)
	}
	return out
}

// soleCellParagraph reports whether p is the only paragraph of some table
// cell in the body, which protects it from removal.
func soleCellParagraph(b *doctree.Body, p *doctree.Paragraph) bool {
	for _, child := range b.Children {
		if tbl, ok := child.(*doctree.Table); ok && soleInTable(tbl, p) {
			return true
		}
	}
	return false
}

func soleInTable(tbl *doctree.Table, p *doctree.Paragraph) bool {
	for _, row := range tbl.Rows {
		for _, cell := range row.Cells {
			paras := 0
			found := false
			for _, child := range cell.Children {
				switch v := child.(type) {
				case *doctree.Paragraph:
					paras++
					if v == p {
						found = true
					}
				case *doctree.Table:
					if soleInTable(v, p) {
						return true
					}
				}
			}
			if found && paras == 1 {
				return true
			}
		}
	}
	return false
}
