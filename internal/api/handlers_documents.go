package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docedit/internal/docindex"
	"github.com/dgallion1/docedit/internal/ooxml"
	"github.com/dgallion1/docedit/internal/revision"
	"github.com/dgallion1/docedit/internal/session"
	"github.com/dgallion1/docedit/internal/store"
)

// handleOpenDocument opens an uploaded docx, or starts a blank document
// when no file is supplied, and returns a session id.
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	var data []byte
	filename := "untitled.docx"
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
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

		filename = sanitizeFilename(header.Filename)
		if !strings.EqualFold(filepath.Ext(filename), ".docx") {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}
		data, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
	}

	author := s.cfg.RevisionAuthor
	if a := r.URL.Query().Get("author"); a != "" {
		author = a
	}

	sess, err := session.NewSession(filename, author, data)
	if err != nil {
		jsonError(w, "open document: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.sessions.Put(sess)

	s.log.Info("document opened", "session_id", sess.ID, "filename", filename, "bytes", len(data))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"session_id": sess.ID,
		"filename":   filename,
		"edits_url":  fmt.Sprintf("/api/documents/%s/edits", sess.ID),
	})
}

// handleListDocuments lists open sessions.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": s.sessions.List()})
}

// handleInspectDocument reports the paragraph index of an open document:
// each paragraph with its start and end offset and visible text.
func (s *Server) handleInspectDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	type paraInfo struct {
		Start       int    `json:"start"`
		End         int    `json:"end"`
		Text        string `json:"text"`
		VisibleText string `json:"visible_text"`
		Style       string `json:"style,omitempty"`
	}
	var out struct {
		Snapshot   session.Snapshot `json:"session"`
		Length     int              `json:"length"`
		Paragraphs []paraInfo       `json:"paragraphs"`
	}
	err := sess.With(func(pkg *ooxml.Package, idx *docindex.Indexer, rev *revision.Context) error {
		out.Length = docindex.Length(pkg.Document.Body)
		for _, entry := range docindex.Reindex(pkg.Document.Body) {
			info := paraInfo{
				Start:       entry.Start,
				End:         entry.End,
				Text:        entry.Para.Text(),
				VisibleText: entry.Para.VisibleText(),
			}
			if entry.Para.Props != nil && entry.Para.Props.StyleID != nil {
				info.Style = *entry.Para.Props.StyleID
			}
			out.Paragraphs = append(out.Paragraphs, info)
		}
		return nil
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out.Snapshot = sess.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// handleDownload serializes the document, verifies the bytes with an
// independent reader, persists them, and streams them back.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	data, err := sess.Save()
	if err != nil {
		jsonError(w, "save document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := ooxml.Verify(data); err != nil {
		s.log.Error("saved document failed verification", "session_id", sess.ID, "error", err)
		jsonError(w, "saved document failed verification: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.docs.Save(sess.ID, data); err != nil {
		s.log.Error("persist document", "session_id", sess.ID, "error", err)
	}

	snap := sess.Snapshot()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Filename))
	w.Write(data)
}

// handleCloseDocument drops the session and any persisted copy.
func (s *Server) handleCloseDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if s.sessions.Get(id) == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	s.sessions.Delete(id)
	if err := s.docs.Delete(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Error("delete stored document", "session_id", id, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"closed": id})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed.docx"
	}
	return name
}
