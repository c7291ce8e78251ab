package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docedit/internal/docindex"
	"github.com/dgallion1/docedit/internal/doctree"
	"github.com/dgallion1/docedit/internal/importer"
	"github.com/dgallion1/docedit/internal/ooxml"
	"github.com/dgallion1/docedit/internal/revision"
	"github.com/dgallion1/docedit/internal/textedit"
)

// EditOp is one operation in a batch. Offset-bearing operations address the
// whole document's concatenated paragraph text.
type EditOp struct {
	Op string `json:"op"`

	Offset int    `json:"offset"`
	Count  int    `json:"count"`
	Text   string `json:"text"`

	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	UseRegex    bool   `json:"use_regex"`

	Name  string `json:"name"`
	URL   string `json:"url"`
	Instr string `json:"instr"`

	Style     string   `json:"style"`
	Bold      *bool    `json:"bold"`
	Italic    *bool    `json:"italic"`
	Items     []string `json:"items"`
	TrackThis *bool    `json:"track_changes"`
}

type editResult struct {
	Op       string `json:"op"`
	Replaced int    `json:"replaced,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleEdits applies a batch of operations in order. The batch stops at
// the first failed operation; earlier operations stay applied.
func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Edits []EditOp `json:"edits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Edits) == 0 {
		jsonError(w, "edits is required", http.StatusBadRequest)
		return
	}

	results := make([]editResult, 0, len(req.Edits))
	err := sess.With(func(pkg *ooxml.Package, idx *docindex.Indexer, rev *revision.Context) error {
		for _, op := range req.Edits {
			res := editResult{Op: op.Op}
			n, applyErr := s.applyEdit(pkg, idx, rev, op)
			if applyErr != nil {
				res.Error = applyErr.Error()
				results = append(results, res)
				return applyErr
			}
			res.Replaced = n
			results = append(results, res)
		}
		return nil
	})

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(statusFor(err))
	}
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func (s *Server) applyEdit(pkg *ooxml.Package, idx *docindex.Indexer, rev *revision.Context, op EditOp) (int, error) {
	body := pkg.Document.Body
	track := s.cfg.TrackChanges
	if op.TrackThis != nil {
		track = *op.TrackThis
	}

	switch op.Op {
	case "insert_text":
		return 0, idx.InsertTextAt(body, op.Offset, op.Text, textedit.InsertOptions{
			TrackChanges: track,
			Formatting:   runProps(op),
		})

	case "remove_text":
		return 0, idx.RemoveTextAt(body, op.Offset, op.Count, track)

	case "replace_all":
		return idx.ReplaceTextAll(body, op.Pattern, op.Replacement, textedit.ReplaceOptions{
			TrackChanges: track,
			UseRegex:     op.UseRegex,
		})

	case "insert_paragraph":
		p := doctree.NewParagraph(op.Text, runProps(op))
		if op.Style != "" {
			p.Props = &doctree.ParagraphProperties{StyleID: doctree.String(op.Style)}
		}
		return 0, idx.InsertParagraphAt(body, op.Offset, p)

	case "append_paragraph":
		p := doctree.NewParagraph(op.Text, runProps(op))
		if op.Style != "" {
			p.Props = &doctree.ParagraphProperties{StyleID: doctree.String(op.Style)}
		}
		idx.AppendParagraph(body, p)
		return 0, nil

	case "insert_list":
		if len(op.Items) == 0 {
			return 0, fmt.Errorf("items is required: %w", textedit.ErrArgumentInvalid)
		}
		items := make([]*doctree.Paragraph, 0, len(op.Items))
		for _, text := range op.Items {
			items = append(items, doctree.NewParagraph(text, runProps(op)))
		}
		return 0, idx.InsertListAt(body, op.Offset, items)

	case "insert_bookmark":
		if op.Name == "" {
			return 0, fmt.Errorf("name is required: %w", textedit.ErrArgumentInvalid)
		}
		p, local, err := docindex.LocateParagraphAt(body, op.Offset)
		if err != nil {
			return 0, err
		}
		return 0, idx.Engine().InsertBookmark(p, local, op.Name)

	case "insert_hyperlink":
		if op.URL == "" || op.Text == "" {
			return 0, fmt.Errorf("url and text are required: %w", textedit.ErrArgumentInvalid)
		}
		p, local, err := docindex.LocateParagraphAt(body, op.Offset)
		if err != nil {
			return 0, err
		}
		relID := pkg.Rels.AddHyperlink(rev, op.URL)
		return 0, idx.Engine().InsertHyperlink(p, local, relID, "", op.Text, runProps(op))

	case "insert_field":
		if op.Instr == "" {
			return 0, fmt.Errorf("instr is required: %w", textedit.ErrArgumentInvalid)
		}
		p, local, err := docindex.LocateParagraphAt(body, op.Offset)
		if err != nil {
			return 0, err
		}
		return 0, idx.Engine().InsertField(p, local, op.Instr)

	default:
		return 0, fmt.Errorf("unknown op %q: %w", op.Op, textedit.ErrArgumentInvalid)
	}
}

func runProps(op EditOp) *doctree.RunProperties {
	if op.Bold == nil && op.Italic == nil {
		return nil
	}
	props := &doctree.RunProperties{}
	if op.Bold != nil {
		props.Bold = doctree.Bool(*op.Bold)
	}
	if op.Italic != nil {
		props.Italic = doctree.Bool(*op.Italic)
	}
	return props
}

// statusFor maps engine errors onto HTTP statuses: bad arguments are the
// caller's fault, out-of-range offsets are unprocessable, invariant
// violations are ours.
func statusFor(err error) int {
	switch {
	case errors.Is(err, textedit.ErrArgumentInvalid):
		return http.StatusBadRequest
	case errors.Is(err, textedit.ErrIndexOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleImport converts an uploaded file into blocks and splices them into
// the document at the requested offset, or appends at the end.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !importer.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	var blockCount int
	err = sess.With(func(pkg *ooxml.Package, idx *docindex.Indexer, rev *revision.Context) error {
		imp, err := importer.ForFile(filename)
		if err != nil {
			return fmt.Errorf("%s: %w", err, textedit.ErrArgumentInvalid)
		}
		// Resolve links against this document's relationship part.
		switch v := imp.(type) {
		case *importer.MarkdownImporter:
			v.ResolveLink = func(url string) string { return pkg.Rels.AddHyperlink(rev, url) }
		case *importer.HTMLImporter:
			v.ResolveLink = func(url string) string { return pkg.Rels.AddHyperlink(rev, url) }
		}

		blocks, err := imp.Import(bytes.NewReader(data), filename)
		if err != nil {
			return fmt.Errorf("import %s: %w", filename, err)
		}
		if len(blocks) == 0 {
			return nil
		}
		blockCount = len(blocks)

		offset := docindex.Length(pkg.Document.Body)
		if v := r.FormValue("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid offset %q: %w", v, textedit.ErrArgumentInvalid)
			}
			offset = n
		}
		return idx.InsertBlocksAt(pkg.Document.Body, offset, blocks...)
	})
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	s.log.Info("imported", "session_id", sess.ID, "filename", filename, "blocks", blockCount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"filename": filename,
		"blocks":   blockCount,
	})
}
