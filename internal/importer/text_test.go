package importer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/docedit/internal/doctree"
)

func TestTextImporter_BlankLineParagraphs(t *testing.T) {
	input := "First paragraph.\n\nSecond paragraph\nspans two lines.\n\n\nThird.\n"
	p := &TextImporter{}
	blocks, err := p.Import(strings.NewReader(input), "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(blocks))
	}
	if got := blocks[0].(*doctree.Paragraph).Text(); got != "First paragraph." {
		t.Errorf("first = %q", got)
	}
	if got := blocks[2].(*doctree.Paragraph).Text(); got != "Third." {
		t.Errorf("third = %q", got)
	}
}

func TestTextImporter_InnerLineBreaks(t *testing.T) {
	p := &TextImporter{}
	blocks, err := p.Import(strings.NewReader("line one\nline two"), "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	para := blocks[0].(*doctree.Paragraph)
	run := para.Children[0].(*doctree.Run)
	var breaks int
	for _, c := range run.Children {
		if _, ok := c.(*doctree.Break); ok {
			breaks++
		}
	}
	if breaks != 1 {
		t.Errorf("breaks = %d, want 1", breaks)
	}
	if para.Length() != len("line one")+1+len("line two") {
		t.Errorf("length = %d", para.Length())
	}
}

func TestCSVImporter_TableWithHeaderRow(t *testing.T) {
	input := "name,age\nAlice,30\nBob,25\n"
	p := &CSVImporter{}
	blocks, err := p.Import(strings.NewReader(input), "doc.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	tbl := blocks[0].(*doctree.Table)
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(tbl.Rows))
	}
	header := tbl.Rows[0].Cells[0].Children[0].(*doctree.Paragraph)
	run := header.Children[0].(*doctree.Run)
	if run.Props == nil || run.Props.Bold == nil || !*run.Props.Bold {
		t.Error("header row not bold")
	}
	data := tbl.Rows[1].Cells[1].Children[0].(*doctree.Paragraph)
	if data.Text() != "30" {
		t.Errorf("cell = %q", data.Text())
	}
}

func TestForFile_SelectsImporter(t *testing.T) {
	cases := map[string]string{
		"notes.txt":   "*importer.TextImporter",
		"readme.md":   "*importer.MarkdownImporter",
		"page.html":   "*importer.HTMLImporter",
		"data.csv":    "*importer.CSVImporter",
		"report.pdf":  "*importer.PDFImporter",
	}
	for name, want := range cases {
		imp, err := ForFile(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if got := fmt.Sprintf("%T", imp); got != want {
			t.Errorf("%s: importer %s, want %s", name, got, want)
		}
	}
	if _, err := ForFile("image.png"); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("image.png") {
		t.Error("png reported as supported")
	}
}
