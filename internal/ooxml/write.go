package ooxml

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/docedit/internal/doctree"
)

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsXML = "http://www.w3.org/XML/1998/namespace"
)

// nsPrefix maps namespace URIs back to the canonical prefixes used when
// re-serializing raw elements.
var nsPrefix = map[string]string{
	nsW:   "w",
	nsR:   "r",
	nsWP:  "wp",
	nsA:   "a",
	nsPic: "pic",
	nsXML: "xml",
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// EncodeDocument serializes a document tree to word/document.xml markup.
func EncodeDocument(doc *doctree.Document) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR +
		`" xmlns:wp="` + nsWP + `" xmlns:a="` + nsA + `" xmlns:pic="` + nsPic + `">`)
	b.WriteString("<w:body>")
	for _, child := range doc.Body.Children {
		switch v := child.(type) {
		case *doctree.Paragraph:
			encodeParagraph(&b, v)
		case *doctree.Table:
			encodeTable(&b, v)
		}
	}
	b.WriteString(doc.Body.SectPr)
	b.WriteString("</w:body></w:document>")
	return []byte(b.String())
}

func encodeParagraph(b *strings.Builder, p *doctree.Paragraph) {
	b.WriteString("<w:p>")
	encodeParagraphProps(b, p.Props)
	for _, child := range p.Children {
		switch v := child.(type) {
		case *doctree.Run:
			encodeRun(b, v)
		case *doctree.RevisionWrapper:
			encodeWrapper(b, v)
		case *doctree.Hyperlink:
			encodeHyperlink(b, v)
		case *doctree.BookmarkStart:
			fmt.Fprintf(b, `<w:bookmarkStart w:id="%d" w:name="%s"/>`, v.ID, escape(v.Name))
		case *doctree.BookmarkEnd:
			fmt.Fprintf(b, `<w:bookmarkEnd w:id="%d"/>`, v.ID)
		}
	}
	b.WriteString("</w:p>")
}

func encodeParagraphProps(b *strings.Builder, props *doctree.ParagraphProperties) {
	if props == nil {
		return
	}
	b.WriteString("<w:pPr>")
	if props.StyleID != nil {
		fmt.Fprintf(b, `<w:pStyle w:val="%s"/>`, escape(*props.StyleID))
	}
	if props.Numbering != nil {
		fmt.Fprintf(b, `<w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%d"/></w:numPr>`,
			props.Numbering.Level, props.Numbering.NumID)
	}
	if len(props.TabStops) > 0 {
		b.WriteString("<w:tabs>")
		for _, ts := range props.TabStops {
			fmt.Fprintf(b, `<w:tab w:val="%s" w:pos="%d"/>`, escape(ts.Type), ts.Pos)
		}
		b.WriteString("</w:tabs>")
	}
	if props.Alignment != nil {
		fmt.Fprintf(b, `<w:jc w:val="%s"/>`, escape(*props.Alignment))
	}
	if props.RunProps != nil {
		encodeRunProps(b, props.RunProps)
	}
	b.WriteString(props.SectPr)
	b.WriteString("</w:pPr>")
}

func encodeWrapper(b *strings.Builder, w *doctree.RevisionWrapper) {
	if w.Link != nil {
		hyperlinkOpen(b, w.Link)
	}
	name := "ins"
	if w.Kind == doctree.RevisionDelete {
		name = "del"
	}
	fmt.Fprintf(b, `<w:%s w:id="%d" w:author="%s" w:date="%s">`,
		name, w.ID, escape(w.Author), w.Date.UTC().Format(time.RFC3339))
	for _, r := range w.Runs {
		encodeRun(b, r)
	}
	fmt.Fprintf(b, "</w:%s>", name)
	if w.Link != nil {
		b.WriteString("</w:hyperlink>")
	}
}

func hyperlinkOpen(b *strings.Builder, h *doctree.Hyperlink) {
	b.WriteString("<w:hyperlink")
	if h.RelID != "" {
		fmt.Fprintf(b, ` r:id="%s"`, escape(h.RelID))
	}
	if h.Anchor != "" {
		fmt.Fprintf(b, ` w:anchor="%s"`, escape(h.Anchor))
	}
	b.WriteString(">")
}

func encodeHyperlink(b *strings.Builder, h *doctree.Hyperlink) {
	hyperlinkOpen(b, h)
	for _, r := range h.Runs {
		encodeRun(b, r)
	}
	b.WriteString("</w:hyperlink>")
}

func encodeRun(b *strings.Builder, r *doctree.Run) {
	b.WriteString("<w:r>")
	if r.Props != nil {
		encodeRunProps(b, r.Props)
	}
	for _, c := range r.Children {
		switch v := c.(type) {
		case *doctree.Text:
			encodeTextLeaf(b, "t", v.Value)
		case *doctree.DeletedText:
			encodeTextLeaf(b, "delText", v.Value)
		case *doctree.Tab:
			b.WriteString("<w:tab/>")
		case *doctree.Break:
			if v.Type == doctree.BreakLine {
				b.WriteString("<w:br/>")
			} else {
				fmt.Fprintf(b, `<w:br w:type="%s"/>`, escape(string(v.Type)))
			}
		case *doctree.Drawing:
			encodeDrawing(b, v)
		case *doctree.FieldChar:
			fmt.Fprintf(b, `<w:fldChar w:fldCharType="%s"/>`, escape(string(v.Type)))
		case *doctree.InstrText:
			encodeTextLeaf(b, "instrText", v.Value)
		}
	}
	b.WriteString("</w:r>")
}

// encodeTextLeaf writes a text element, flagging space preservation when
// the value has leading or trailing whitespace.
func encodeTextLeaf(b *strings.Builder, name, value string) {
	if value != strings.TrimSpace(value) {
		fmt.Fprintf(b, `<w:%s xml:space="preserve">%s</w:%s>`, name, escape(value), name)
		return
	}
	fmt.Fprintf(b, `<w:%s>%s</w:%s>`, name, escape(value), name)
}

func encodeDrawing(b *strings.Builder, d *doctree.Drawing) {
	if d.Raw != "" {
		b.WriteString(d.Raw)
		return
	}
	// Minimal inline picture markup for drawings created in memory.
	fmt.Fprintf(b, `<w:drawing><wp:inline><wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="1" name="%s"/>`+
		`<a:graphic><a:graphicData uri="`+nsPic+`">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="1" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`,
		d.Width, d.Height, escape(d.Name), escape(d.Name), escape(d.RelID), d.Width, d.Height)
}

func encodeRunProps(b *strings.Builder, props *doctree.RunProperties) {
	b.WriteString("<w:rPr>")
	if props.StyleID != nil {
		fmt.Fprintf(b, `<w:rStyle w:val="%s"/>`, escape(*props.StyleID))
	}
	if props.Font != nil {
		fmt.Fprintf(b, `<w:rFonts w:ascii="%s" w:hAnsi="%s"/>`, escape(*props.Font), escape(*props.Font))
	}
	if props.Bold != nil {
		writeToggle(b, "b", *props.Bold)
	}
	if props.Italic != nil {
		writeToggle(b, "i", *props.Italic)
	}
	if props.Strike != nil {
		writeToggle(b, "strike", *props.Strike)
	}
	if props.Underline != nil {
		fmt.Fprintf(b, `<w:u w:val="%s"/>`, escape(*props.Underline))
	}
	if props.Color != nil {
		fmt.Fprintf(b, `<w:color w:val="%s"/>`, escape(*props.Color))
	}
	if props.Highlight != nil {
		fmt.Fprintf(b, `<w:highlight w:val="%s"/>`, escape(*props.Highlight))
	}
	if props.Size != nil {
		fmt.Fprintf(b, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, *props.Size, *props.Size)
	}
	if props.VertAlign != nil {
		fmt.Fprintf(b, `<w:vertAlign w:val="%s"/>`, escape(*props.VertAlign))
	}
	b.WriteString("</w:rPr>")
}

func writeToggle(b *strings.Builder, name string, on bool) {
	if on {
		fmt.Fprintf(b, "<w:%s/>", name)
	} else {
		fmt.Fprintf(b, `<w:%s w:val="0"/>`, name)
	}
}

func encodeTable(b *strings.Builder, tbl *doctree.Table) {
	b.WriteString("<w:tbl>")
	if tbl.TblPr != "" {
		b.WriteString(tbl.TblPr)
	} else {
		// Default properties for tables created in memory.
		b.WriteString(`<w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)
	}
	b.WriteString(tbl.TblGrid)
	for _, row := range tbl.Rows {
		b.WriteString("<w:tr>")
		b.WriteString(row.TrPr)
		for _, cell := range row.Cells {
			b.WriteString("<w:tc>")
			b.WriteString(cell.TcPr)
			children := cell.Children
			if len(children) == 0 {
				// A cell must hold at least one paragraph.
				children = []doctree.BodyChild{&doctree.Paragraph{}}
			}
			for _, child := range children {
				switch v := child.(type) {
				case *doctree.Paragraph:
					encodeParagraph(b, v)
				case *doctree.Table:
					encodeTable(b, v)
				}
			}
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
