package ooxml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// Preview re-parses saved docx bytes with an independent reader and returns
// the paragraph texts it sees. A save that another library cannot read back
// is a save we do not trust.
func Preview(data []byte) ([]string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reparse docx: %w", err)
	}
	var out []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var buf strings.Builder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if t, ok := rc.(*docx.Text); ok {
					buf.WriteString(t.Text)
				}
			}
		}
		out = append(out, buf.String())
	}
	return out, nil
}

// Verify checks that saved bytes round-trip through an independent reader.
func Verify(data []byte) error {
	_, err := Preview(data)
	return err
}
