package ooxml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docedit/internal/doctree"
	"github.com/dgallion1/docedit/internal/revision"
)

const sampleDocXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
<w:p>
<w:pPr><w:pStyle w:val="Heading1"/><w:jc w:val="center"/></w:pPr>
<w:r><w:rPr><w:b/><w:sz w:val="28"/></w:rPr><w:t xml:space="preserve">Hello </w:t></w:r>
<w:r><w:t>World</w:t></w:r>
</w:p>
<w:p>
<w:ins w:id="5" w:author="alice" w:date="2025-06-02T10:30:00Z"><w:r><w:t>new</w:t></w:r></w:ins>
<w:del w:id="6" w:author="bob" w:date="2025-06-02T10:31:00Z"><w:r><w:delText>old</w:delText></w:r></w:del>
<w:hyperlink r:id="rId4"><w:r><w:t>link</w:t></w:r></w:hyperlink>
<w:bookmarkStart w:id="3" w:name="mark"/>
<w:bookmarkEnd w:id="3"/>
</w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>
</w:body>
</w:document>`

func TestDecodeDocument_ParagraphsAndProps(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(sampleDocXML))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	paras := doc.Body.Paragraphs()
	if len(paras) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(paras))
	}

	p := paras[0]
	if got := p.Text(); got != "Hello World" {
		t.Errorf("text = %q, want %q", got, "Hello World")
	}
	if p.Props == nil || p.Props.StyleID == nil || *p.Props.StyleID != "Heading1" {
		t.Errorf("style = %v, want Heading1", p.Props)
	}
	if p.Props.Alignment == nil || *p.Props.Alignment != "center" {
		t.Errorf("alignment = %v, want center", p.Props.Alignment)
	}
	run := p.Children[0].(*doctree.Run)
	if run.Props == nil || run.Props.Bold == nil || !*run.Props.Bold {
		t.Errorf("first run not bold: %+v", run.Props)
	}
	if run.Props.Size == nil || *run.Props.Size != 28 {
		t.Errorf("size = %v, want 28", run.Props.Size)
	}
}

func TestDecodeDocument_RevisionWrappers(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(sampleDocXML))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	p := doc.Body.Paragraphs()[1]

	ins, ok := p.Children[0].(*doctree.RevisionWrapper)
	if !ok || ins.Kind != doctree.RevisionInsert {
		t.Fatalf("child 0 = %T, want insert wrapper", p.Children[0])
	}
	if ins.ID != 5 || ins.Author != "alice" {
		t.Errorf("ins id=%d author=%q", ins.ID, ins.Author)
	}
	want := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	if !ins.Date.Equal(want) {
		t.Errorf("ins date = %v, want %v", ins.Date, want)
	}

	del, ok := p.Children[1].(*doctree.RevisionWrapper)
	if !ok || del.Kind != doctree.RevisionDelete {
		t.Fatalf("child 1 = %T, want delete wrapper", p.Children[1])
	}
	if del.VisibleLength() != 0 || del.Length() != 3 {
		t.Errorf("del lengths = %d/%d, want 3/0", del.Length(), del.VisibleLength())
	}

	h, ok := p.Children[2].(*doctree.Hyperlink)
	if !ok {
		t.Fatalf("child 2 = %T, want hyperlink", p.Children[2])
	}
	if h.RelID != "rId4" {
		t.Fatalf("hyperlink relID = %q, want rId4", h.RelID)
	}

	bs, ok := p.Children[3].(*doctree.BookmarkStart)
	if !ok || bs.ID != 3 || bs.Name != "mark" {
		t.Fatalf("child 3 = %T, want bookmarkStart id=3 name=mark", p.Children[3])
	}
	if be, ok := p.Children[4].(*doctree.BookmarkEnd); !ok || be.ID != 3 {
		t.Fatalf("child 4 = %T, want bookmarkEnd id=3", p.Children[4])
	}
}

func TestDecodeDocument_TableAndSectPr(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(sampleDocXML))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	var tbl *doctree.Table
	for _, c := range doc.Body.Children {
		if v, ok := c.(*doctree.Table); ok {
			tbl = v
		}
	}
	if tbl == nil {
		t.Fatal("no table decoded")
	}
	cellPara := tbl.Rows[0].Cells[0].Children[0].(*doctree.Paragraph)
	if got := cellPara.Text(); got != "cell" {
		t.Errorf("cell text = %q, want %q", got, "cell")
	}
	if !strings.HasPrefix(doc.Body.SectPr, "<w:sectPr") || !strings.Contains(doc.Body.SectPr, "11906") {
		t.Errorf("sectPr not preserved: %q", doc.Body.SectPr)
	}
}

const styledTableXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:tbl>
<w:tblPr><w:tblStyle w:val="FancyTable"/><w:tblW w:w="5000" w:type="pct"/><w:tblBorders><w:top w:val="single" w:sz="8"/></w:tblBorders></w:tblPr>
<w:tblGrid><w:gridCol w:w="2400"/><w:gridCol w:w="7200"/></w:tblGrid>
<w:tr><w:trPr><w:trHeight w:val="400"/></w:trPr>
<w:tc><w:tcPr><w:tcW w:w="2400" w:type="dxa"/><w:shd w:val="clear" w:fill="DDDDDD"/></w:tcPr><w:p><w:r><w:t>head</w:t></w:r></w:p></w:tc>
<w:tc><w:tcPr><w:tcW w:w="7200" w:type="dxa"/></w:tcPr><w:p><w:r><w:t>body</w:t></w:r></w:p></w:tc>
</w:tr>
</w:tbl>
</w:body>
</w:document>`

func TestTable_PropertiesSurviveRoundTrip(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(styledTableXML))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	tbl := doc.Body.Children[0].(*doctree.Table)
	if !strings.Contains(tbl.TblPr, "FancyTable") || !strings.Contains(tbl.TblPr, "tblBorders") {
		t.Fatalf("tblPr not captured: %q", tbl.TblPr)
	}
	if !strings.Contains(tbl.TblGrid, `w:w="2400"`) {
		t.Fatalf("tblGrid not captured: %q", tbl.TblGrid)
	}
	if !strings.Contains(tbl.Rows[0].TrPr, "trHeight") {
		t.Fatalf("trPr not captured: %q", tbl.Rows[0].TrPr)
	}
	if !strings.Contains(tbl.Rows[0].Cells[0].TcPr, `w:fill="DDDDDD"`) {
		t.Fatalf("tcPr not captured: %q", tbl.Rows[0].Cells[0].TcPr)
	}

	out := EncodeDocument(doc)
	for _, want := range []string{"FancyTable", "<w:tblGrid>", "<w:gridCol", "trHeight", `w:fill="DDDDDD"`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("encoded table lost %q:\n%s", want, out)
		}
	}
	if strings.Contains(string(out), "TableGrid") {
		t.Error("canned tblPr replaced the document's own properties")
	}

	doc2, err := DecodeDocument(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("re-decode: %v\n%s", err, out)
	}
	tbl2 := doc2.Body.Children[0].(*doctree.Table)
	if tbl2.TblPr != tbl.TblPr || tbl2.TblGrid != tbl.TblGrid {
		t.Errorf("table properties drifted across encode:\n%q\n%q", tbl.TblPr, tbl2.TblPr)
	}
	if got := tbl2.Rows[0].Cells[0].Children[0].(*doctree.Paragraph).Text(); got != "head" {
		t.Errorf("cell text = %q, want %q", got, "head")
	}
}

func TestEncodeTable_InMemoryGetsDefaultProps(t *testing.T) {
	var b strings.Builder
	encodeTable(&b, &doctree.Table{Rows: []*doctree.TableRow{
		{Cells: []*doctree.TableCell{{Children: []doctree.BodyChild{doctree.NewParagraph("cell", nil)}}}},
	}})
	if got := b.String(); !strings.Contains(got, `<w:tblStyle w:val="TableGrid"/>`) {
		t.Errorf("default tblPr missing: %q", got)
	}
}

func TestEncodeDocument_RoundTrip(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(sampleDocXML))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	out := EncodeDocument(doc)
	doc2, err := DecodeDocument(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("re-decode: %v\n%s", err, out)
	}

	p1, p2 := doc.Body.Paragraphs(), doc2.Body.Paragraphs()
	if len(p1) != len(p2) {
		t.Fatalf("paragraphs %d != %d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i].Text() != p2[i].Text() {
			t.Errorf("paragraph %d text %q != %q", i, p1[i].Text(), p2[i].Text())
		}
		if p1[i].VisibleText() != p2[i].VisibleText() {
			t.Errorf("paragraph %d visible %q != %q", i, p1[i].VisibleText(), p2[i].VisibleText())
		}
	}
	if doc2.Body.SectPr == "" {
		t.Error("sectPr lost in round trip")
	}
	w2 := p2[1].Children[0].(*doctree.RevisionWrapper)
	if w2.ID != 5 || w2.Author != "alice" || !w2.Date.Equal(time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("wrapper identity lost: %+v", w2)
	}
}

const linkedDeletionXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
<w:p>
<w:hyperlink r:id="rId4"><w:r><w:t xml:space="preserve">the </w:t></w:r><w:del w:id="7" w:author="bob" w:date="2025-06-02T10:31:00Z"><w:r><w:delText xml:space="preserve">old </w:delText></w:r></w:del><w:r><w:t>docs</w:t></w:r></w:hyperlink>
</w:p>
</w:body>
</w:document>`

func TestHyperlink_DeletionKeepsLinkAcrossRoundTrip(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(linkedDeletionXML))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	p := doc.Body.Paragraphs()[0]
	if len(p.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(p.Children))
	}
	w, ok := p.Children[1].(*doctree.RevisionWrapper)
	if !ok || w.Kind != doctree.RevisionDelete {
		t.Fatalf("child 1 = %T, want deletion wrapper", p.Children[1])
	}
	if w.Link == nil || w.Link.RelID != "rId4" {
		t.Fatalf("deletion lost its link: %+v", w.Link)
	}
	if got := p.VisibleText(); got != "the docs" {
		t.Errorf("visible = %q, want %q", got, "the docs")
	}

	out := EncodeDocument(doc)
	if !strings.Contains(string(out), `<w:hyperlink r:id="rId4"><w:del `) {
		t.Fatalf("deletion not nested in its hyperlink:\n%s", out)
	}

	doc2, err := DecodeDocument(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("re-decode: %v\n%s", err, out)
	}
	p2 := doc2.Body.Paragraphs()[0]
	w2, ok := p2.Children[1].(*doctree.RevisionWrapper)
	if !ok || w2.Link == nil || w2.Link.RelID != "rId4" {
		t.Fatalf("link dropped across encode: %T", p2.Children[1])
	}
	if p2.Text() != p.Text() || p2.VisibleText() != p.VisibleText() {
		t.Errorf("text drifted: %q vs %q", p2.Text(), p.Text())
	}
}

func TestEncodeTextLeaf_SpacePreserve(t *testing.T) {
	var b strings.Builder
	encodeTextLeaf(&b, "t", "Hello ")
	if got := b.String(); got != `<w:t xml:space="preserve">Hello </w:t>` {
		t.Errorf("got %q", got)
	}
	b.Reset()
	encodeTextLeaf(&b, "t", "Hello")
	if got := b.String(); got != `<w:t>Hello</w:t>` {
		t.Errorf("got %q", got)
	}
}

func TestPackage_SaveOpenRoundTrip(t *testing.T) {
	p := NewPackage()
	p.Document.Body.Children = []doctree.BodyChild{
		doctree.NewParagraph("first paragraph", nil),
		doctree.NewParagraph("second paragraph", nil),
	}
	data, err := p.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	p2, err := OpenPackage(data)
	if err != nil {
		t.Fatalf("OpenPackage: %v", err)
	}
	paras := p2.Document.Body.Paragraphs()
	if len(paras) != 2 || paras[0].Text() != "first paragraph" || paras[1].Text() != "second paragraph" {
		t.Fatalf("round trip lost content: %d paragraphs", len(paras))
	}
}

func TestRelationships_AddHyperlinkReusesTarget(t *testing.T) {
	rev := revision.NewContext("alice")
	rels := &Relationships{}
	id1 := rels.AddHyperlink(rev, "https://example.com")
	id2 := rels.AddHyperlink(rev, "https://example.com")
	if id1 != id2 {
		t.Errorf("same target got two ids: %s, %s", id1, id2)
	}
	id3 := rels.AddHyperlink(rev, "https://example.org")
	if id3 == id1 {
		t.Errorf("different target reused id %s", id3)
	}
}

func TestPackage_ReserveSkipsUsedIDs(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(sampleDocXML))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	p := &Package{Document: doc, Rels: &Relationships{Items: []Relationship{
		{ID: "rId4", Type: relTypeHyperlink, Target: "https://example.com", TargetMode: "External"},
	}}, parts: map[string][]byte{}}

	rev := revision.NewContext("alice")
	p.Reserve(rev)
	if id := rev.NextRevisionID(); id <= 6 {
		t.Errorf("revision id %d collides with document", id)
	}
	if id := rev.NextBookmarkID(); id <= 3 {
		t.Errorf("bookmark id %d collides with document", id)
	}
	if rid := rev.NextRelID(); rid == "rId4" {
		t.Errorf("rel id %s collides with rels part", rid)
	}
}

func TestPackage_AddImagePart(t *testing.T) {
	rev := revision.NewContext("alice")
	p := NewPackage()
	rid := p.AddImagePart(rev, "png", []byte{0x89, 'P', 'N', 'G'})
	if rid == "" {
		t.Fatal("no relationship id")
	}
	rel, ok := p.Rels.Lookup(rid)
	if !ok || rel.Type != relTypeImage || !strings.HasPrefix(rel.Target, "media/image") {
		t.Fatalf("relationship = %+v", rel)
	}
	if !strings.Contains(string(p.parts[contentTypesPart]), `Extension="png"`) {
		t.Error("content type default for png missing")
	}
}
