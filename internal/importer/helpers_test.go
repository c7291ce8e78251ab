package importer

import (
	"strings"

	"github.com/dgallion1/docedit/internal/doctree"
)

func hyperlinkText(h *doctree.Hyperlink) string {
	var b strings.Builder
	for _, r := range h.Runs {
		b.WriteString(r.Text())
	}
	return b.String()
}
