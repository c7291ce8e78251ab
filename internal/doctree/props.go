package doctree

// RunProperties is the formatting of a run. Every field is optional: a nil
// field means "not specified here", which is what makes field-presence
// merging possible.
type RunProperties struct {
	StyleID   *string
	Bold      *bool
	Italic    *bool
	Underline *string // "single", "double", "none", ...
	Strike    *bool
	Color     *string // hex RGB without '#'
	Highlight *string
	Font      *string
	Size      *int // half-points
	VertAlign *string // "superscript" | "subscript"
}

// Clone returns a deep copy, or nil for nil.
func (p *RunProperties) Clone() *RunProperties {
	if p == nil {
		return nil
	}
	out := &RunProperties{}
	out.StyleID = cloneStr(p.StyleID)
	out.Bold = cloneBool(p.Bold)
	out.Italic = cloneBool(p.Italic)
	out.Underline = cloneStr(p.Underline)
	out.Strike = cloneBool(p.Strike)
	out.Color = cloneStr(p.Color)
	out.Highlight = cloneStr(p.Highlight)
	out.Font = cloneStr(p.Font)
	out.Size = cloneInt(p.Size)
	out.VertAlign = cloneStr(p.VertAlign)
	return out
}

// Merge overlays override onto the ambient properties p: a set field in
// override replaces the ambient value, an unset field keeps it. Neither
// argument is mutated.
func (p *RunProperties) Merge(override *RunProperties) *RunProperties {
	if override == nil {
		return p.Clone()
	}
	out := p.Clone()
	if out == nil {
		out = &RunProperties{}
	}
	if override.StyleID != nil {
		out.StyleID = cloneStr(override.StyleID)
	}
	if override.Bold != nil {
		out.Bold = cloneBool(override.Bold)
	}
	if override.Italic != nil {
		out.Italic = cloneBool(override.Italic)
	}
	if override.Underline != nil {
		out.Underline = cloneStr(override.Underline)
	}
	if override.Strike != nil {
		out.Strike = cloneBool(override.Strike)
	}
	if override.Color != nil {
		out.Color = cloneStr(override.Color)
	}
	if override.Highlight != nil {
		out.Highlight = cloneStr(override.Highlight)
	}
	if override.Font != nil {
		out.Font = cloneStr(override.Font)
	}
	if override.Size != nil {
		out.Size = cloneInt(override.Size)
	}
	if override.VertAlign != nil {
		out.VertAlign = cloneStr(override.VertAlign)
	}
	return out
}

// ParagraphProperties is the block-level formatting of a paragraph.
type ParagraphProperties struct {
	StyleID   *string
	Alignment *string // "left", "center", "right", "both"
	Numbering *Numbering
	TabStops  []TabStop
	// RunProps is the paragraph-mark run formatting (pPr/rPr).
	RunProps *RunProperties
	// SectPr holds a section-properties element verbatim (inner XML); a
	// paragraph carrying one terminates a section.
	SectPr string
}

// Numbering links a paragraph into a numbering definition.
type Numbering struct {
	NumID int
	Level int
}

// TabStop is a tab stop definition inside paragraph properties. It shares a
// name with the in-run tab character but never contributes length.
type TabStop struct {
	Type string // "left", "center", "right", "decimal", "clear"
	Pos  int    // twentieths of a point
}

// Clone returns a deep copy, or nil for nil.
func (p *ParagraphProperties) Clone() *ParagraphProperties {
	if p == nil {
		return nil
	}
	out := &ParagraphProperties{
		StyleID:   cloneStr(p.StyleID),
		Alignment: cloneStr(p.Alignment),
		RunProps:  p.RunProps.Clone(),
		SectPr:    p.SectPr,
	}
	if p.Numbering != nil {
		n := *p.Numbering
		out.Numbering = &n
	}
	out.TabStops = append(out.TabStops, p.TabStops...)
	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// Ptr helpers for building property literals.

func String(v string) *string { return &v }
func Bool(v bool) *bool       { return &v }
func Int(v int) *int          { return &v }
