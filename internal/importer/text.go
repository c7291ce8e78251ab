package importer

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docedit/internal/doctree"
)

// TextImporter converts plain text. Blank lines delimit paragraphs; line
// breaks inside a paragraph become break leaves.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) ([]doctree.BodyChild, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks []doctree.BodyChild
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		blocks = append(blocks, doctree.NewParagraph(current.String(), nil))
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}
