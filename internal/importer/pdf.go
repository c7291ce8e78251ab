package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docedit/internal/doctree"
)

// PDFImporter converts PDF files into text paragraphs, one block of
// paragraphs per page with a page break between pages.
type PDFImporter struct{}

func (p *PDFImporter) Import(r io.Reader, filename string) ([]doctree.BodyChild, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docedit-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var blocks []doctree.BodyChild
	for i, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		if i > 0 && len(blocks) > 0 {
			blocks = append(blocks, pageBreakParagraph())
		}
		for _, para := range strings.Split(page, "\n\n") {
			para = strings.TrimSpace(para)
			if para != "" {
				blocks = append(blocks, doctree.NewParagraph(para, nil))
			}
		}
	}
	return blocks, nil
}

func pageBreakParagraph() *doctree.Paragraph {
	run := &doctree.Run{Children: []doctree.RunChild{
		&doctree.Break{Type: doctree.BreakPage},
	}}
	return &doctree.Paragraph{Children: []doctree.ParagraphChild{run}}
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}
