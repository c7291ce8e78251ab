package importer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docedit/internal/doctree"
)

// HTMLImporter converts HTML files. Headings and block elements become
// paragraphs; b/strong, i/em, u and code map to run formatting.
type HTMLImporter struct {
	ResolveLink func(url string) string
}

func (p *HTMLImporter) Import(r io.Reader, filename string) ([]doctree.BodyChild, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var blocks []doctree.BodyChild
	var walk func(n *html.Node, listLevel int, ordered bool)
	walk = func(n *html.Node, listLevel int, ordered bool) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				para := &doctree.Paragraph{Props: headingStyle(level)}
				para.Children = p.inline(n, doctree.RunProperties{})
				blocks = append(blocks, para)
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "blockquote":
				para := &doctree.Paragraph{}
				if n.Data == "blockquote" {
					para.Props = &doctree.ParagraphProperties{StyleID: doctree.String("Quote")}
				}
				para.Children = p.inline(n, doctree.RunProperties{})
				if len(para.Children) > 0 {
					blocks = append(blocks, para)
				}
				return
			case "ul", "ol":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, listLevel+1, n.Data == "ol")
				}
				return
			case "li":
				numID := bulletNumID
				if ordered {
					numID = orderedNumID
				}
				para := &doctree.Paragraph{Props: &doctree.ParagraphProperties{
					Numbering: &doctree.Numbering{NumID: numID, Level: listLevel - 1},
				}}
				para.Children = p.inline(n, doctree.RunProperties{})
				if len(para.Children) > 0 {
					blocks = append(blocks, para)
				}
				// Nested lists inside the item become their own blocks.
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
						walk(c, listLevel, ordered)
					}
				}
				return
			case "table":
				if tbl := p.table(n); tbl != nil {
					blocks = append(blocks, tbl)
				}
				return
			case "pre":
				text := strings.TrimRight(textContent(n), "\n")
				if text != "" {
					para := &doctree.Paragraph{Props: &doctree.ParagraphProperties{
						StyleID: doctree.String("Code"),
					}}
					para.Children = append(para.Children,
						doctree.NewRun(text, &doctree.RunProperties{Font: doctree.String("Consolas")}))
					blocks = append(blocks, para)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, listLevel, ordered)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body, 0, false)
	} else {
		walk(doc, 0, false)
	}
	return blocks, nil
}

// inline flattens the inline content of an element into runs, skipping
// nested block elements that walk handles separately.
func (p *HTMLImporter) inline(n *html.Node, props doctree.RunProperties) []doctree.ParagraphChild {
	var out []doctree.ParagraphChild
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			val := collapseSpace(c.Data)
			if val != "" {
				out = append(out, doctree.NewRun(val, &props))
			}
		case html.ElementNode:
			switch c.Data {
			case "b", "strong":
				nested := props
				nested.Bold = doctree.Bool(true)
				out = append(out, p.inline(c, nested)...)
			case "i", "em":
				nested := props
				nested.Italic = doctree.Bool(true)
				out = append(out, p.inline(c, nested)...)
			case "u":
				nested := props
				nested.Underline = doctree.String("single")
				out = append(out, p.inline(c, nested)...)
			case "code":
				nested := props
				nested.Font = doctree.String("Consolas")
				out = append(out, p.inline(c, nested)...)
			case "a":
				linkProps := props
				linkProps.StyleID = doctree.String("Hyperlink")
				runs := p.inline(c, linkProps)
				href := attr(c, "href")
				if p.ResolveLink == nil || href == "" {
					out = append(out, runs...)
					break
				}
				h := &doctree.Hyperlink{RelID: p.ResolveLink(href)}
				for _, rc := range runs {
					if run, ok := rc.(*doctree.Run); ok {
						h.Runs = append(h.Runs, run)
					}
				}
				out = append(out, h)
			case "br":
				out = append(out, &doctree.Run{Children: []doctree.RunChild{&doctree.Break{}}})
			case "ul", "ol", "table", "pre", "p", "blockquote":
				// Block content, handled by the outer walk.
			default:
				out = append(out, p.inline(c, props)...)
			}
		}
	}
	return out
}

func (p *HTMLImporter) table(n *html.Node) *doctree.Table {
	tbl := &doctree.Table{}
	var rows func(n *html.Node)
	rows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				row := &doctree.TableRow{}
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
						continue
					}
					cellProps := doctree.RunProperties{}
					if td.Data == "th" {
						cellProps.Bold = doctree.Bool(true)
					}
					para := &doctree.Paragraph{Children: p.inline(td, cellProps)}
					row.Cells = append(row.Cells, &doctree.TableCell{
						Children: []doctree.BodyChild{para},
					})
				}
				if len(row.Cells) > 0 {
					tbl.Rows = append(tbl.Rows, row)
				}
			case "thead", "tbody", "tfoot":
				rows(c)
			}
		}
	}
	rows(n)
	if len(tbl.Rows) == 0 {
		return nil
	}
	return tbl
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// collapseSpace folds runs of whitespace into single spaces, the way a
// browser lays out inline text.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	out := strings.Join(fields, " ")
	if s[0] == ' ' || s[0] == '\n' || s[0] == '\t' {
		out = " " + out
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' {
		out += " "
	}
	return out
}
