// Package ooxml decodes and encodes the wordprocessing document part and
// the docx package around it. The decoder preserves child order and the
// elements the editing engine distinguishes; everything else inside a
// paragraph is skipped, and package parts other than the document part are
// passed through byte-for-byte.
package ooxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docedit/internal/doctree"
)

// DecodeDocument parses a word/document.xml stream into a document tree.
func DecodeDocument(r io.Reader) (*doctree.Document, error) {
	d := xml.NewDecoder(r)
	doc := &doctree.Document{Body: &doctree.Body{}}

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "document":
			// Descend.
		case "body":
			if err := decodeBody(d, doc.Body); err != nil {
				return nil, err
			}
		default:
			if err := d.Skip(); err != nil {
				return nil, fmt.Errorf("skip %s: %w", start.Name.Local, err)
			}
		}
	}
	return doc, nil
}

func decodeBody(d *xml.Decoder, b *doctree.Body) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return fmt.Errorf("decode body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p, err := decodeParagraph(d, t)
				if err != nil {
					return err
				}
				b.Children = append(b.Children, p)
			case "tbl":
				tbl, err := decodeTable(d, t)
				if err != nil {
					return err
				}
				b.Children = append(b.Children, tbl)
			case "sectPr":
				raw, err := rawElement(d, t)
				if err != nil {
					return err
				}
				b.SectPr = raw
			default:
				if err := d.Skip(); err != nil {
					return fmt.Errorf("skip %s: %w", t.Name.Local, err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				return nil
			}
		}
	}
}

func decodeParagraph(d *xml.Decoder, start xml.StartElement) (*doctree.Paragraph, error) {
	p := &doctree.Paragraph{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				props, err := decodeParagraphProps(d)
				if err != nil {
					return nil, err
				}
				p.Props = props
			case "r":
				run, err := decodeRun(d, t)
				if err != nil {
					return nil, err
				}
				p.Children = append(p.Children, run)
			case "ins", "del":
				w, err := decodeWrapper(d, t)
				if err != nil {
					return nil, err
				}
				p.Children = append(p.Children, w)
			case "hyperlink":
				parts, err := decodeHyperlink(d, t)
				if err != nil {
					return nil, err
				}
				p.Children = append(p.Children, parts...)
			case "bookmarkStart":
				bm := &doctree.BookmarkStart{}
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "id":
						bm.ID, _ = strconv.Atoi(a.Value)
					case "name":
						bm.Name = a.Value
					}
				}
				p.Children = append(p.Children, bm)
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "bookmarkEnd":
				bm := &doctree.BookmarkEnd{}
				for _, a := range t.Attr {
					if a.Name.Local == "id" {
						bm.ID, _ = strconv.Atoi(a.Value)
					}
				}
				p.Children = append(p.Children, bm)
				if err := d.Skip(); err != nil {
					return nil, err
				}
			default:
				if err := d.Skip(); err != nil {
					return nil, fmt.Errorf("skip %s: %w", t.Name.Local, err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				return p, nil
			}
		}
	}
}

func decodeWrapper(d *xml.Decoder, start xml.StartElement) (*doctree.RevisionWrapper, error) {
	w := &doctree.RevisionWrapper{Kind: doctree.RevisionInsert}
	if start.Name.Local == "del" {
		w.Kind = doctree.RevisionDelete
	}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			w.ID, _ = strconv.Atoi(a.Value)
		case "author":
			w.Author = a.Value
		case "date":
			if ts, err := time.Parse(time.RFC3339, a.Value); err == nil {
				w.Date = ts.UTC()
			}
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "r" {
				run, err := decodeRun(d, t)
				if err != nil {
					return nil, err
				}
				w.Runs = append(w.Runs, run)
			} else if err := d.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return w, nil
			}
		}
	}
}

// decodeHyperlink returns a paragraph-child sequence: plain runs stay in
// hyperlink nodes, while a nested w:ins/w:del becomes a wrapper carrying
// the hyperlink as its shell, so the link survives the revision.
func decodeHyperlink(d *xml.Decoder, start xml.StartElement) ([]doctree.ParagraphChild, error) {
	shell := &doctree.Hyperlink{}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			shell.RelID = a.Value
		case "anchor":
			shell.Anchor = a.Value
		}
	}

	var out []doctree.ParagraphChild
	var cur *doctree.Hyperlink
	flush := func() {
		if cur != nil {
			out = append(out, cur)
			cur = nil
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode hyperlink: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				run, err := decodeRun(d, t)
				if err != nil {
					return nil, err
				}
				if cur == nil {
					cur = shell.Shell()
				}
				cur.Runs = append(cur.Runs, run)
			case "ins", "del":
				w, err := decodeWrapper(d, t)
				if err != nil {
					return nil, err
				}
				w.Link = shell.Shell()
				flush()
				out = append(out, w)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "hyperlink" {
				flush()
				if len(out) == 0 {
					out = append(out, shell.Shell())
				}
				return out, nil
			}
		}
	}
}

func decodeRun(d *xml.Decoder, start xml.StartElement) (*doctree.Run, error) {
	r := &doctree.Run{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				props, err := decodeRunProps(d)
				if err != nil {
					return nil, err
				}
				r.Props = props
			case "t":
				val, err := elementText(d, "t")
				if err != nil {
					return nil, err
				}
				r.Children = append(r.Children, &doctree.Text{Value: val})
			case "delText":
				val, err := elementText(d, "delText")
				if err != nil {
					return nil, err
				}
				r.Children = append(r.Children, &doctree.DeletedText{Value: val})
			case "tab":
				r.Children = append(r.Children, &doctree.Tab{})
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "br":
				br := &doctree.Break{}
				for _, a := range t.Attr {
					if a.Name.Local == "type" {
						br.Type = doctree.BreakType(a.Value)
					}
				}
				r.Children = append(r.Children, br)
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "drawing":
				dr, err := decodeDrawing(d, t)
				if err != nil {
					return nil, err
				}
				r.Children = append(r.Children, dr)
			case "fldChar":
				fc := &doctree.FieldChar{}
				for _, a := range t.Attr {
					if a.Name.Local == "fldCharType" {
						fc.Type = doctree.FieldCharType(a.Value)
					}
				}
				r.Children = append(r.Children, fc)
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "instrText":
				val, err := elementText(d, "instrText")
				if err != nil {
					return nil, err
				}
				r.Children = append(r.Children, &doctree.InstrText{Value: val})
			default:
				if err := d.Skip(); err != nil {
					return nil, fmt.Errorf("skip %s: %w", t.Name.Local, err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "r" {
				return r, nil
			}
		}
	}
}

// decodeDrawing captures the drawing verbatim for round-tripping and lifts
// out the fields the engine and relationship layer care about.
func decodeDrawing(d *xml.Decoder, start xml.StartElement) (*doctree.Drawing, error) {
	raw, err := rawElement(d, start)
	if err != nil {
		return nil, err
	}
	dr := &doctree.Drawing{Raw: raw}
	if i := strings.Index(raw, `r:embed="`); i >= 0 {
		rest := raw[i+len(`r:embed="`):]
		if j := strings.IndexByte(rest, '"'); j >= 0 {
			dr.RelID = rest[:j]
		}
	}
	return dr, nil
}

func decodeParagraphProps(d *xml.Decoder) (*doctree.ParagraphProperties, error) {
	props := &doctree.ParagraphProperties{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode pPr: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pStyle":
				props.StyleID = doctree.String(attrVal(t, "val"))
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "jc":
				props.Alignment = doctree.String(attrVal(t, "val"))
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "numPr":
				num, err := decodeNumbering(d)
				if err != nil {
					return nil, err
				}
				props.Numbering = num
			case "tabs":
				stops, err := decodeTabStops(d)
				if err != nil {
					return nil, err
				}
				props.TabStops = stops
			case "rPr":
				rp, err := decodeRunProps(d)
				if err != nil {
					return nil, err
				}
				props.RunProps = rp
			case "sectPr":
				raw, err := rawElement(d, t)
				if err != nil {
					return nil, err
				}
				props.SectPr = raw
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "pPr" {
				return props, nil
			}
		}
	}
}

func decodeNumbering(d *xml.Decoder) (*doctree.Numbering, error) {
	num := &doctree.Numbering{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode numPr: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "numId":
				num.NumID, _ = strconv.Atoi(attrVal(t, "val"))
			case "ilvl":
				num.Level, _ = strconv.Atoi(attrVal(t, "val"))
			}
			if err := d.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name.Local == "numPr" {
				return num, nil
			}
		}
	}
}

func decodeTabStops(d *xml.Decoder) ([]doctree.TabStop, error) {
	var stops []doctree.TabStop
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode tabs: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "tab" {
				pos, _ := strconv.Atoi(attrVal(t, "pos"))
				stops = append(stops, doctree.TabStop{Type: attrVal(t, "val"), Pos: pos})
			}
			if err := d.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name.Local == "tabs" {
				return stops, nil
			}
		}
	}
}

func decodeRunProps(d *xml.Decoder) (*doctree.RunProperties, error) {
	props := &doctree.RunProperties{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode rPr: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rStyle":
				props.StyleID = doctree.String(attrVal(t, "val"))
			case "b":
				props.Bold = doctree.Bool(onOff(attrVal(t, "val")))
			case "i":
				props.Italic = doctree.Bool(onOff(attrVal(t, "val")))
			case "strike":
				props.Strike = doctree.Bool(onOff(attrVal(t, "val")))
			case "u":
				props.Underline = doctree.String(attrVal(t, "val"))
			case "color":
				props.Color = doctree.String(attrVal(t, "val"))
			case "highlight":
				props.Highlight = doctree.String(attrVal(t, "val"))
			case "rFonts":
				if f := attrVal(t, "ascii"); f != "" {
					props.Font = doctree.String(f)
				}
			case "sz":
				if n, err := strconv.Atoi(attrVal(t, "val")); err == nil {
					props.Size = doctree.Int(n)
				}
			case "vertAlign":
				props.VertAlign = doctree.String(attrVal(t, "val"))
			}
			if err := d.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name.Local == "rPr" {
				return props, nil
			}
		}
	}
}

func decodeTable(d *xml.Decoder, start xml.StartElement) (*doctree.Table, error) {
	tbl := &doctree.Table{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tr":
				row, err := decodeRow(d)
				if err != nil {
					return nil, err
				}
				tbl.Rows = append(tbl.Rows, row)
			case "tblPr":
				raw, err := rawElement(d, t)
				if err != nil {
					return nil, err
				}
				tbl.TblPr = raw
			case "tblGrid":
				raw, err := rawElement(d, t)
				if err != nil {
					return nil, err
				}
				tbl.TblGrid = raw
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tbl" {
				return tbl, nil
			}
		}
	}
}

func decodeRow(d *xml.Decoder) (*doctree.TableRow, error) {
	row := &doctree.TableRow{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tc":
				cell, err := decodeCell(d)
				if err != nil {
					return nil, err
				}
				row.Cells = append(row.Cells, cell)
			case "trPr":
				raw, err := rawElement(d, t)
				if err != nil {
					return nil, err
				}
				row.TrPr = raw
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tr" {
				return row, nil
			}
		}
	}
}

func decodeCell(d *xml.Decoder) (*doctree.TableCell, error) {
	cell := &doctree.TableCell{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("decode cell: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				p, err := decodeParagraph(d, t)
				if err != nil {
					return nil, err
				}
				cell.Children = append(cell.Children, p)
			case "tbl":
				nested, err := decodeTable(d, t)
				if err != nil {
					return nil, err
				}
				cell.Children = append(cell.Children, nested)
			case "tcPr":
				raw, err := rawElement(d, t)
				if err != nil {
					return nil, err
				}
				cell.TcPr = raw
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tc" {
				return cell, nil
			}
		}
	}
}

// elementText reads character data up to the matching end element.
func elementText(d *xml.Decoder, name string) (string, error) {
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", name, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == name {
				return b.String(), nil
			}
		case xml.StartElement:
			if err := d.Skip(); err != nil {
				return "", err
			}
		}
	}
}

func attrVal(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// onOff interprets an OOXML boolean attribute, where absence means true.
func onOff(v string) bool {
	switch v {
	case "", "1", "true", "on":
		return true
	}
	return false
}

// rawElement re-serializes an element (start tag already consumed) to its
// original markup, preserved for verbatim write-back.
func rawElement(d *xml.Decoder, start xml.StartElement) (string, error) {
	var b strings.Builder
	writeStartTag(&b, start)
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", fmt.Errorf("raw %s: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			writeStartTag(&b, t)
		case xml.EndElement:
			depth--
			if depth > 0 || t.Name.Local == start.Name.Local {
				b.WriteString("</")
				writeName(&b, t.Name)
				b.WriteString(">")
			}
		case xml.CharData:
			xml.EscapeText(&b, t)
		}
	}
	return b.String(), nil
}

func writeStartTag(b *strings.Builder, t xml.StartElement) {
	b.WriteString("<")
	writeName(b, t.Name)
	for _, a := range t.Attr {
		b.WriteString(" ")
		writeName(b, a.Name)
		b.WriteString(`="`)
		xml.EscapeText(b, []byte(a.Value))
		b.WriteString(`"`)
	}
	b.WriteString(">")
}

func writeName(b *strings.Builder, n xml.Name) {
	if p, ok := nsPrefix[n.Space]; ok {
		b.WriteString(p)
		b.WriteString(":")
	} else if n.Space != "" && !strings.Contains(n.Space, "/") {
		// Undeclared prefix survived the tokenizer.
		b.WriteString(n.Space)
		b.WriteString(":")
	}
	b.WriteString(n.Local)
}
