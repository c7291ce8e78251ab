package importer

import (
	"strings"
	"testing"

	"github.com/dgallion1/docedit/internal/doctree"
)

func TestHTMLImporter_HeadingsAndFormatting(t *testing.T) {
	input := `<html><body>
<h1>Title</h1>
<p>plain <strong>bold</strong> and <em>italic</em></p>
</body></html>`
	p := &HTMLImporter{}
	blocks, err := p.Import(strings.NewReader(input), "doc.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	h1 := blocks[0].(*doctree.Paragraph)
	if h1.Props == nil || h1.Props.StyleID == nil || *h1.Props.StyleID != "Heading1" {
		t.Errorf("heading style = %+v", h1.Props)
	}
	if h1.Text() != "Title" {
		t.Errorf("heading text = %q", h1.Text())
	}

	para := blocks[1].(*doctree.Paragraph)
	if got := para.Text(); got != "plain bold and italic" {
		t.Errorf("text = %q", got)
	}
	var sawBold bool
	for _, c := range para.Children {
		if run, ok := c.(*doctree.Run); ok && run.Props != nil && run.Props.Bold != nil && *run.Props.Bold {
			sawBold = true
			if run.Text() != "bold" {
				t.Errorf("bold run text = %q", run.Text())
			}
		}
	}
	if !sawBold {
		t.Error("no bold run produced")
	}
}

func TestHTMLImporter_SkipsNonContent(t *testing.T) {
	input := `<html><head><style>p{}</style></head><body>
<nav>menu</nav>
<p>kept</p>
<script>alert(1)</script>
</body></html>`
	p := &HTMLImporter{}
	blocks, err := p.Import(strings.NewReader(input), "doc.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if got := blocks[0].(*doctree.Paragraph).Text(); got != "kept" {
		t.Errorf("text = %q", got)
	}
}

func TestHTMLImporter_Table(t *testing.T) {
	input := `<table>
<tr><th>Name</th><th>Age</th></tr>
<tr><td>Alice</td><td>30</td></tr>
</table>`
	p := &HTMLImporter{}
	blocks, err := p.Import(strings.NewReader(input), "doc.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tbl *doctree.Table
	for _, b := range blocks {
		if v, ok := b.(*doctree.Table); ok {
			tbl = v
		}
	}
	if tbl == nil {
		t.Fatal("no table imported")
	}
	if len(tbl.Rows) != 2 || len(tbl.Rows[0].Cells) != 2 {
		t.Fatalf("table shape %dx%d", len(tbl.Rows), len(tbl.Rows[0].Cells))
	}
	header := tbl.Rows[0].Cells[0].Children[0].(*doctree.Paragraph)
	if header.Text() != "Name" {
		t.Errorf("header text = %q", header.Text())
	}
	run := header.Children[0].(*doctree.Run)
	if run.Props == nil || run.Props.Bold == nil || !*run.Props.Bold {
		t.Error("header cell not bold")
	}
	data := tbl.Rows[1].Cells[0].Children[0].(*doctree.Paragraph)
	if data.Text() != "Alice" {
		t.Errorf("data text = %q", data.Text())
	}
}

func TestHTMLImporter_Lists(t *testing.T) {
	input := `<ul><li>first</li><li>second</li></ul><ol><li>one</li></ol>`
	p := &HTMLImporter{}
	blocks, err := p.Import(strings.NewReader(input), "doc.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 items, got %d", len(blocks))
	}
	bullet := blocks[0].(*doctree.Paragraph)
	if bullet.Props == nil || bullet.Props.Numbering == nil || bullet.Props.Numbering.NumID != bulletNumID {
		t.Errorf("bullet numbering = %+v", bullet.Props)
	}
	ordered := blocks[2].(*doctree.Paragraph)
	if ordered.Props == nil || ordered.Props.Numbering == nil || ordered.Props.Numbering.NumID != orderedNumID {
		t.Errorf("ordered numbering = %+v", ordered.Props)
	}
}

func TestHTMLImporter_LinkResolved(t *testing.T) {
	p := &HTMLImporter{ResolveLink: func(url string) string { return "rId7" }}
	blocks, err := p.Import(strings.NewReader(`<p>go <a href="https://example.com">here</a></p>`), "doc.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	para := blocks[0].(*doctree.Paragraph)
	var link *doctree.Hyperlink
	for _, c := range para.Children {
		if h, ok := c.(*doctree.Hyperlink); ok {
			link = h
		}
	}
	if link == nil || link.RelID != "rId7" || hyperlinkText(link) != "here" {
		t.Fatalf("hyperlink = %+v", link)
	}
}
