package doctree

import "strings"

// RunChild is an inline leaf inside a run: *Text, *DeletedText, *Tab,
// *Break, *Drawing, *FieldChar, *InstrText.
type RunChild interface {
	isRunChild()
}

// Run is a contiguous span of uniformly-formatted content: zero or more
// text-bearing children plus at most one non-text content child (drawing or
// field marker).
type Run struct {
	Props    *RunProperties
	Children []RunChild
}

func (*Run) isParagraphChild() {}

// Text is a literal text leaf (w:t).
type Text struct {
	Value string
}

func (*Text) isRunChild() {}

// DeletedText is text inside a tracked deletion (w:delText). It still
// occupies offsets in the markup-level offset space.
type DeletedText struct {
	Value string
}

func (*DeletedText) isRunChild() {}

// Tab is a literal tab character leaf (w:tab inside a run). Tab stop
// definitions live in ParagraphProperties and are a different type, so they
// never contribute length.
type Tab struct{}

func (*Tab) isRunChild() {}

// BreakType classifies a break leaf.
type BreakType string

const (
	BreakLine   BreakType = ""
	BreakPage   BreakType = "page"
	BreakColumn BreakType = "column"
)

// Break is a line/page/column break leaf.
type Break struct {
	Type BreakType
}

func (*Break) isRunChild() {}

// Drawing is an embedded object reference. Not length-bearing; resolved to
// package parts through the relationship layer at save time.
type Drawing struct {
	RelID string
	// Extent in EMUs.
	Width, Height int64
	Name          string
	// Raw holds the drawing element exactly as parsed, written back
	// verbatim on save. Empty for drawings created in memory.
	Raw string
}

func (*Drawing) isRunChild() {}

// FieldCharType classifies a field character marker.
type FieldCharType string

const (
	FieldBegin    FieldCharType = "begin"
	FieldSeparate FieldCharType = "separate"
	FieldEnd      FieldCharType = "end"
)

// FieldChar is a field begin/separate/end marker.
type FieldChar struct {
	Type FieldCharType
}

func (*FieldChar) isRunChild() {}

// InstrText is a field instruction code. Field codes are not length-bearing.
type InstrText struct {
	Value string
}

func (*InstrText) isRunChild() {}

// NewRun builds a run from text, expanding literal tabs and newlines into
// tab and break leaves so every character of text occupies exactly one
// offset.
func NewRun(text string, props *RunProperties) *Run {
	r := &Run{Props: props.Clone()}
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			r.Children = append(r.Children, &Text{Value: buf.String()})
			buf.Reset()
		}
	}
	for _, c := range text {
		switch c {
		case '\t':
			flush()
			r.Children = append(r.Children, &Tab{})
		case '\n':
			flush()
			r.Children = append(r.Children, &Break{})
		default:
			buf.WriteRune(c)
		}
	}
	flush()
	return r
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	out := &Run{Props: r.Props.Clone()}
	for _, c := range r.Children {
		out.Children = append(out.Children, cloneRunChild(c))
	}
	return out
}

func cloneRunChild(c RunChild) RunChild {
	switch v := c.(type) {
	case *Text:
		return &Text{Value: v.Value}
	case *DeletedText:
		return &DeletedText{Value: v.Value}
	case *Tab:
		return &Tab{}
	case *Break:
		return &Break{Type: v.Type}
	case *Drawing:
		d := *v
		return &d
	case *FieldChar:
		return &FieldChar{Type: v.Type}
	case *InstrText:
		return &InstrText{Value: v.Value}
	}
	return c
}

// HasContent reports whether the run carries a non-text content child
// (drawing or field marker). Runs with content survive text emptying.
func (r *Run) HasContent() bool {
	for _, c := range r.Children {
		switch c.(type) {
		case *Drawing, *FieldChar, *InstrText:
			return true
		}
	}
	return false
}

// MarkDeleted converts the run's text leaves to deleted-text leaves, for
// wrapping in a tracked deletion.
func (r *Run) MarkDeleted() {
	for i, c := range r.Children {
		if t, ok := c.(*Text); ok {
			r.Children[i] = &DeletedText{Value: t.Value}
		}
	}
}
