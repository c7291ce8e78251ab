package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dgallion1/docedit/internal/doctree"
	"github.com/dgallion1/docedit/internal/revision"
)

const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"
)

// Package is an opened docx file. The main document part is decoded into a
// tree; every other part is carried through byte for byte.
type Package struct {
	Document *doctree.Document
	Rels     *Relationships

	parts map[string][]byte
	order []string
}

// OpenPackage reads a docx archive from memory.
func OpenPackage(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	p := &Package{parts: map[string][]byte{}}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		p.parts[f.Name] = body
		p.order = append(p.order, f.Name)
	}
	docXML, ok := p.parts[documentPart]
	if !ok {
		return nil, fmt.Errorf("open docx: missing %s", documentPart)
	}
	doc, err := DecodeDocument(bytes.NewReader(docXML))
	if err != nil {
		return nil, err
	}
	p.Document = doc
	rels, err := ParseRelationships(p.parts[documentRelsPart])
	if err != nil {
		return nil, err
	}
	p.Rels = rels
	return p, nil
}

// NewPackage builds a minimal blank document.
func NewPackage() *Package {
	p := &Package{
		Document: &doctree.Document{Body: &doctree.Body{
			Children: []doctree.BodyChild{&doctree.Paragraph{}},
		}},
		Rels:  &Relationships{},
		parts: map[string][]byte{},
	}
	p.parts[contentTypesPart] = []byte(xmlHeader +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`)
	p.parts["_rels/.rels"] = []byte(xmlHeader +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`)
	p.order = []string{contentTypesPart, "_rels/.rels", documentPart}
	return p
}

// Reserve walks the document and relationship set and feeds every id that
// is already in use into the allocator.
func (p *Package) Reserve(rev *revision.Context) {
	p.Rels.Reserve(rev)
	var walk func(children []doctree.BodyChild)
	walk = func(children []doctree.BodyChild) {
		for _, c := range children {
			switch v := c.(type) {
			case *doctree.Paragraph:
				for _, pc := range v.Children {
					switch w := pc.(type) {
					case *doctree.RevisionWrapper:
						rev.ReserveRevisionID(w.ID)
					case *doctree.BookmarkStart:
						rev.ReserveBookmarkID(w.ID)
					case *doctree.BookmarkEnd:
						rev.ReserveBookmarkID(w.ID)
					}
				}
			case *doctree.Table:
				for _, row := range v.Rows {
					for _, cell := range row.Cells {
						walk(cell.Children)
					}
				}
			}
		}
	}
	walk(p.Document.Body.Children)
}

// AddImagePart stores image bytes under word/media and returns the
// relationship id for embedding. ext is the file extension without a dot.
func (p *Package) AddImagePart(rev *revision.Context, ext string, data []byte) string {
	name := fmt.Sprintf("word/media/image%d.%s", p.mediaCount()+1, ext)
	p.setPart(name, data)
	p.ensureDefaultContentType(ext)
	return p.Rels.AddImage(rev, strings.TrimPrefix(name, "word/"))
}

func (p *Package) mediaCount() int {
	n := 0
	for name := range p.parts {
		if strings.HasPrefix(name, "word/media/") {
			n++
		}
	}
	return n
}

func (p *Package) setPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// ensureDefaultContentType adds a Default entry for ext to the content
// types part when none exists.
func (p *Package) ensureDefaultContentType(ext string) {
	ct := string(p.parts[contentTypesPart])
	if strings.Contains(ct, fmt.Sprintf(`Extension="%s"`, ext)) {
		return
	}
	mime := "image/" + ext
	if ext == "jpg" {
		mime = "image/jpeg"
	}
	entry := fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, mime)
	ct = strings.Replace(ct, "</Types>", entry+"</Types>", 1)
	p.parts[contentTypesPart] = []byte(ct)
}

// Save serializes the package back to a docx archive. The document and
// relationship parts are re-encoded; everything else passes through.
func (p *Package) Save() ([]byte, error) {
	p.setPart(documentPart, EncodeDocument(p.Document))
	if len(p.Rels.Items) > 0 || p.parts[documentRelsPart] != nil {
		rels, err := p.Rels.Encode()
		if err != nil {
			return nil, err
		}
		p.setPart(documentRelsPart, rels)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range p.order {
		w, err := zw.Create(path.Clean(name))
		if err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}
