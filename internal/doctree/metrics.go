package doctree

import (
	"strings"
	"unicode/utf8"
)

// Text metrics. Two offset spaces exist over the same tree:
//
//   - markup length: every text-bearing leaf counts, including deleted text
//     inside tracked deletions. Edit offsets are defined over this space.
//   - visible length: tracked deletions contribute nothing; this is the
//     length a reader accepting all insertions and deletions would see.

// LeafLength is the character contribution of a single run child.
func LeafLength(c RunChild) int {
	switch v := c.(type) {
	case *Text:
		return utf8.RuneCountInString(v.Value)
	case *DeletedText:
		return utf8.RuneCountInString(v.Value)
	case *Tab:
		return 1
	case *Break:
		return 1
	}
	// Drawing, FieldChar, InstrText.
	return 0
}

// Length is the markup-level character length of the run.
func (r *Run) Length() int {
	n := 0
	for _, c := range r.Children {
		n += LeafLength(c)
	}
	return n
}

// VisibleLength is the run's length with deleted text excluded.
func (r *Run) VisibleLength() int {
	n := 0
	for _, c := range r.Children {
		if _, ok := c.(*DeletedText); ok {
			continue
		}
		n += LeafLength(c)
	}
	return n
}

// Length is the sum of the wrapper's runs' markup lengths.
func (w *RevisionWrapper) Length() int {
	n := 0
	for _, r := range w.Runs {
		n += r.Length()
	}
	return n
}

// VisibleLength is zero for a deletion wrapper, the runs' visible length
// otherwise.
func (w *RevisionWrapper) VisibleLength() int {
	if w.Kind == RevisionDelete {
		return 0
	}
	n := 0
	for _, r := range w.Runs {
		n += r.VisibleLength()
	}
	return n
}

// Length is the sum of the hyperlink's runs' markup lengths.
func (h *Hyperlink) Length() int {
	n := 0
	for _, r := range h.Runs {
		n += r.Length()
	}
	return n
}

// VisibleLength is the sum of the hyperlink's runs' visible lengths.
func (h *Hyperlink) VisibleLength() int {
	n := 0
	for _, r := range h.Runs {
		n += r.VisibleLength()
	}
	return n
}

// ChildLength is the markup-level length of a paragraph child.
func ChildLength(c ParagraphChild) int {
	switch v := c.(type) {
	case *Run:
		return v.Length()
	case *RevisionWrapper:
		return v.Length()
	case *Hyperlink:
		return v.Length()
	}
	// Bookmark markers.
	return 0
}

// Length is the markup-level character length of the paragraph.
func (p *Paragraph) Length() int {
	n := 0
	for _, c := range p.Children {
		n += ChildLength(c)
	}
	return n
}

// VisibleLength is the paragraph's length with tracked deletions excluded.
func (p *Paragraph) VisibleLength() int {
	n := 0
	for _, c := range p.Children {
		switch v := c.(type) {
		case *Run:
			n += v.VisibleLength()
		case *RevisionWrapper:
			n += v.VisibleLength()
		case *Hyperlink:
			n += v.VisibleLength()
		}
	}
	return n
}

// Text flattens the run to a string; tabs become '\t', breaks '\n'.
func (r *Run) Text() string {
	var b strings.Builder
	for _, c := range r.Children {
		writeLeaf(&b, c, true)
	}
	return b.String()
}

// VisibleText flattens the run with deleted text excluded.
func (r *Run) VisibleText() string {
	var b strings.Builder
	for _, c := range r.Children {
		writeLeaf(&b, c, false)
	}
	return b.String()
}

// Text flattens the paragraph at the markup level.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, c := range p.Children {
		switch v := c.(type) {
		case *Run:
			b.WriteString(v.Text())
		case *RevisionWrapper:
			for _, r := range v.Runs {
				b.WriteString(r.Text())
			}
		case *Hyperlink:
			for _, r := range v.Runs {
				b.WriteString(r.Text())
			}
		}
	}
	return b.String()
}

// VisibleText flattens the paragraph with tracked deletions excluded.
func (p *Paragraph) VisibleText() string {
	var b strings.Builder
	for _, c := range p.Children {
		switch v := c.(type) {
		case *Run:
			b.WriteString(v.VisibleText())
		case *RevisionWrapper:
			if v.Kind == RevisionDelete {
				continue
			}
			for _, r := range v.Runs {
				b.WriteString(r.VisibleText())
			}
		case *Hyperlink:
			for _, r := range v.Runs {
				b.WriteString(r.VisibleText())
			}
		}
	}
	return b.String()
}

// HasContent reports whether any run of the paragraph carries a non-text
// content child. Paragraphs with content survive text emptying.
func (p *Paragraph) HasContent() bool {
	for _, c := range p.Children {
		switch v := c.(type) {
		case *Run:
			if v.HasContent() {
				return true
			}
		case *RevisionWrapper:
			for _, r := range v.Runs {
				if r.HasContent() {
					return true
				}
			}
		case *Hyperlink:
			for _, r := range v.Runs {
				if r.HasContent() {
					return true
				}
			}
		}
	}
	return false
}

func writeLeaf(b *strings.Builder, c RunChild, withDeleted bool) {
	switch v := c.(type) {
	case *Text:
		b.WriteString(v.Value)
	case *DeletedText:
		if withDeleted {
			b.WriteString(v.Value)
		}
	case *Tab:
		b.WriteByte('\t')
	case *Break:
		b.WriteByte('\n')
	}
}
