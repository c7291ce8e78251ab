package importer

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docedit/internal/doctree"
)

// Numbering definition ids list paragraphs link to. A real numbering part
// would define these; consumers that splice imported blocks into an
// existing document keep whatever definitions that document carries.
const (
	bulletNumID  = 1
	orderedNumID = 2
)

// MarkdownImporter converts Markdown using goldmark. Headings become styled
// paragraphs, emphasis becomes run formatting, list items become numbered
// paragraphs.
type MarkdownImporter struct {
	// ResolveLink maps a link destination to a relationship id. When nil,
	// links are flattened to their text with hyperlink styling.
	ResolveLink func(url string) string
}

func (p *MarkdownImporter) Import(r io.Reader, filename string) ([]doctree.BodyChild, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []doctree.BodyChild
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = append(blocks, p.block(n, src, 0)...)
	}
	return blocks, nil
}

func (p *MarkdownImporter) block(n ast.Node, src []byte, listLevel int) []doctree.BodyChild {
	switch node := n.(type) {
	case *ast.Heading:
		para := &doctree.Paragraph{Props: headingStyle(node.Level)}
		para.Children = p.inlineRuns(node, src, doctree.RunProperties{})
		return []doctree.BodyChild{para}

	case *ast.Paragraph, *ast.TextBlock:
		para := &doctree.Paragraph{}
		para.Children = p.inlineRuns(n, src, doctree.RunProperties{})
		return []doctree.BodyChild{para}

	case *ast.List:
		numID := bulletNumID
		if node.IsOrdered() {
			numID = orderedNumID
		}
		var blocks []doctree.BodyChild
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				if nested, ok := c.(*ast.List); ok {
					blocks = append(blocks, p.block(nested, src, listLevel+1)...)
					continue
				}
				for _, b := range p.block(c, src, listLevel) {
					if para, ok := b.(*doctree.Paragraph); ok {
						if para.Props == nil {
							para.Props = &doctree.ParagraphProperties{}
						}
						para.Props.Numbering = &doctree.Numbering{NumID: numID, Level: listLevel}
					}
					blocks = append(blocks, b)
				}
			}
		}
		return blocks

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var buf strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		code := strings.TrimRight(buf.String(), "\n")
		if code == "" {
			return nil
		}
		para := &doctree.Paragraph{Props: &doctree.ParagraphProperties{
			StyleID: doctree.String("Code"),
		}}
		para.Children = append(para.Children,
			doctree.NewRun(code, &doctree.RunProperties{Font: doctree.String("Consolas")}))
		return []doctree.BodyChild{para}

	case *ast.Blockquote:
		var blocks []doctree.BodyChild
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			for _, b := range p.block(c, src, listLevel) {
				if para, ok := b.(*doctree.Paragraph); ok {
					if para.Props == nil {
						para.Props = &doctree.ParagraphProperties{}
					}
					para.Props.StyleID = doctree.String("Quote")
				}
				blocks = append(blocks, b)
			}
		}
		return blocks

	case *ast.ThematicBreak:
		return []doctree.BodyChild{&doctree.Paragraph{}}
	}
	return nil
}

// inlineRuns flattens the inline children of a block into runs, carrying
// emphasis state down into nested inlines.
func (p *MarkdownImporter) inlineRuns(n ast.Node, src []byte, props doctree.RunProperties) []doctree.ParagraphChild {
	var out []doctree.ParagraphChild
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			val := string(node.Value(src))
			if node.SoftLineBreak() {
				val += " "
			}
			if node.HardLineBreak() {
				val += "\n"
			}
			if val != "" {
				out = append(out, doctree.NewRun(val, &props))
			}
		case *ast.Emphasis:
			nested := props
			if node.Level >= 2 {
				nested.Bold = doctree.Bool(true)
			} else {
				nested.Italic = doctree.Bool(true)
			}
			out = append(out, p.inlineRuns(node, src, nested)...)
		case *ast.CodeSpan:
			nested := props
			nested.Font = doctree.String("Consolas")
			val := string(node.Text(src))
			if val != "" {
				out = append(out, doctree.NewRun(val, &nested))
			}
		case *ast.Link:
			linkProps := props
			linkProps.StyleID = doctree.String("Hyperlink")
			runs := p.inlineRuns(node, src, linkProps)
			if p.ResolveLink == nil {
				out = append(out, runs...)
				break
			}
			h := &doctree.Hyperlink{RelID: p.ResolveLink(string(node.Destination))}
			for _, rc := range runs {
				if run, ok := rc.(*doctree.Run); ok {
					h.Runs = append(h.Runs, run)
				}
			}
			out = append(out, h)
		default:
			out = append(out, p.inlineRuns(node, src, props)...)
		}
	}
	return out
}
