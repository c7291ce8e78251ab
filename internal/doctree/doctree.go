// Package doctree defines the in-memory document tree for a wordprocessing
// document: an ordered, rooted tree of typed block and inline nodes. All
// character offsets over this tree are measured in runes.
package doctree

import "time"

// Document is the root of a parsed document part.
type Document struct {
	Body *Body
}

// Body is the top-level container of block elements.
type Body struct {
	Children []BodyChild
	// SectPr holds the trailing section properties element verbatim
	// (inner XML), passed through on save.
	SectPr string
}

// BodyChild is a block-level element: *Paragraph or *Table.
type BodyChild interface {
	isBodyChild()
}

// ParagraphChild is an inline-level element in a paragraph's ordered child
// sequence: *Run, *RevisionWrapper, *Hyperlink, *BookmarkStart, *BookmarkEnd.
type ParagraphChild interface {
	isParagraphChild()
}

// Paragraph is an ordered sequence of runs, revision wrappers, hyperlinks
// and bookmark markers, with optional paragraph properties.
type Paragraph struct {
	Props    *ParagraphProperties
	Children []ParagraphChild
}

func (*Paragraph) isBodyChild() {}

// RevisionKind distinguishes tracked insertions from tracked deletions.
type RevisionKind uint8

const (
	RevisionInsert RevisionKind = iota + 1
	RevisionDelete
)

// RevisionWrapper is a tracked-change marker grouping one or more runs.
// Its attributes (id, author, date) must be replicated onto every fragment
// produced when the wrapper is split; a fragment with zero length is never
// emitted.
type RevisionWrapper struct {
	Kind   RevisionKind
	ID     int
	Author string
	// Date is truncated to the UTC minute.
	Date time.Time
	Runs []*Run
	// Link, when set, is the hyperlink the wrapped runs were carved
	// from. The codec nests the wrapper back inside it on write, so
	// rejecting the revision restores the link, not bare text.
	Link *Hyperlink
}

func (*RevisionWrapper) isParagraphChild() {}

// Hyperlink groups runs under a relationship reference or an internal
// anchor. Exactly one of RelID/Anchor is normally set.
type Hyperlink struct {
	RelID  string
	Anchor string
	Runs   []*Run
}

func (*Hyperlink) isParagraphChild() {}

// BookmarkStart opens a named bookmark. Not length-bearing.
type BookmarkStart struct {
	ID   int
	Name string
}

func (*BookmarkStart) isParagraphChild() {}

// BookmarkEnd closes the bookmark with the matching ID. Not length-bearing.
type BookmarkEnd struct {
	ID int
}

func (*BookmarkEnd) isParagraphChild() {}

// Table is a block element. Tables contribute no length to the container
// offset space; their cells hold their own paragraph sequences.
type Table struct {
	// TblPr and TblGrid hold the table properties and column grid exactly
	// as parsed, written back verbatim on save. Empty for tables created
	// in memory.
	TblPr   string
	TblGrid string
	Rows    []*TableRow
}

func (*Table) isBodyChild() {}

// TableRow is one row of cells.
type TableRow struct {
	// TrPr holds the row properties as parsed, written back verbatim.
	TrPr  string
	Cells []*TableCell
}

// TableCell holds a block sequence. A cell always contains at least one
// paragraph; the last paragraph of a cell can never be removed outright.
type TableCell struct {
	// TcPr holds the cell properties as parsed, written back verbatim.
	TcPr     string
	Children []BodyChild
}

// NewParagraph builds a paragraph with a single run holding text, or an
// empty paragraph when text is "".
func NewParagraph(text string, props *RunProperties) *Paragraph {
	p := &Paragraph{}
	if text != "" {
		p.Children = append(p.Children, NewRun(text, props))
	}
	return p
}

// Paragraphs returns the paragraphs of the body in order, skipping tables.
func (b *Body) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, c := range b.Children {
		if p, ok := c.(*Paragraph); ok {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of the wrapper, including its runs.
func (w *RevisionWrapper) Clone() *RevisionWrapper {
	out := w.Shell()
	for _, r := range w.Runs {
		out.Runs = append(out.Runs, r.Clone())
	}
	return out
}

// Shell returns a copy of the wrapper's attributes with no runs. Used when
// splitting: both halves carry the original identity.
func (w *RevisionWrapper) Shell() *RevisionWrapper {
	return &RevisionWrapper{Kind: w.Kind, ID: w.ID, Author: w.Author, Date: w.Date, Link: w.Link}
}

// Shell returns a copy of the hyperlink's attributes with no runs.
func (h *Hyperlink) Shell() *Hyperlink {
	return &Hyperlink{RelID: h.RelID, Anchor: h.Anchor}
}
