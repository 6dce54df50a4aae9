package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/entrepeneur4lyf/repairforge/internal/app"
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
	"github.com/entrepeneur4lyf/repairforge/internal/markdown"
	"github.com/entrepeneur4lyf/repairforge/internal/media"
)

// maxUploadBytes bounds request bodies that carry media.
const maxUploadBytes = guide.MaxMediaSize + 1<<20

// maxFieldBytes bounds a single non-file form field.
const maxFieldBytes = 64 << 10

// stateView strips what a client must not receive from a snapshot.
func stateView(st app.State) app.State {
	st.Form.Media = nil
	return st
}

// runAsync runs an effect detached from the request. The server's
// background context bounds it.
func (s *Server) runAsync(name string, fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(s.background, s.opts.RequestTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Background operation panicked", "operation", name, "panic", r)
			}
		}()
		fn(ctx)
	}()
}

// accepted replies 202 with the snapshot current at the time of the call.
func (s *Server) accepted(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusAccepted, stateView(s.ctrl.State()))
}

// localized renders a validation error in the caller's negotiated locale.
func (s *Server) localized(r *http.Request, err error) string {
	locale := i18n.FromContext(r.Context())
	if locale == "" {
		locale = s.opts.Locales.Language()
	}
	var msgs []string
	for _, e := range unjoin(err) {
		msgs = append(msgs, s.opts.Locales.TIn(locale, guide.MessageKey(e)))
	}
	return strings.Join(msgs, "\n")
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stateView(s.ctrl.State()))
}

// upload is a form read from a request body.
type upload struct {
	values map[string]string
	media  *guide.Media
}

func (u *upload) value(name string) string { return u.values[name] }

// readUpload streams a multipart body. A file larger than
// guide.MaxMediaSize is kept as a size-only Media so validation reports it;
// fields that follow it are read only while the body limit allows.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	up := &upload{values: make(map[string]string)}

	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for k := range r.PostForm {
			up.values[k] = r.PostForm.Get(k)
		}
		return up, nil
	}
	if err != nil {
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return up, nil
		}
		if err != nil {
			if up.media != nil && up.media.Size > guide.MaxMediaSize {
				return up, nil
			}
			return nil, err
		}

		name := part.FormName()
		if part.FileName() == "" {
			b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if err != nil {
				return nil, err
			}
			if len(b) > maxFieldBytes {
				return nil, fmt.Errorf("field %q exceeds %d bytes", name, maxFieldBytes)
			}
			if _, ok := up.values[name]; !ok {
				up.values[name] = string(b)
			}
			continue
		}
		if name != field || up.media != nil {
			continue
		}
		if up.media, err = mediaFromPart(part); err != nil {
			return nil, err
		}
	}
}

func mediaFromPart(part *multipart.Part) (*guide.Media, error) {
	data, err := io.ReadAll(io.LimitReader(part, guide.MaxMediaSize+1))
	var tooLarge *http.MaxBytesError
	if err != nil && !errors.As(err, &tooLarge) {
		return nil, err
	}
	mimeType := part.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	m := &guide.Media{MIMEType: mimeType, Name: part.FileName(), Data: data}
	if tooLarge != nil || len(data) > guide.MaxMediaSize {
		m.Size, m.Data = guide.MaxMediaSize+1, nil
	}
	return m, nil
}

// handleAnalysis validates a submission synchronously and runs the
// analysis in the background.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "media")
	if err != nil {
		s.writeError(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	sub := guide.Submission{Description: up.value("description"), Media: up.media}

	if errs := guide.ValidateSubmission(sub); len(errs) > 0 {
		// Submit records the inline form errors without calling the model.
		st, err := s.ctrl.Submit(r.Context(), sub)
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": s.localized(r, err),
			"state": stateView(st),
		})
		return
	}

	s.runAsync("analysis", func(ctx context.Context) {
		if _, err := s.ctrl.Submit(ctx, sub); err != nil {
			s.log.Debug("Analysis finished with error", "error", err)
		}
	})
	s.accepted(w)
}

func (s *Server) handleAttachMedia(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "media")
	if err != nil {
		s.writeError(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	if up.media == nil {
		s.writeError(w, "media file is required", http.StatusBadRequest)
		return
	}
	ref, err := s.ctrl.AttachMedia(*up.media)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": s.localized(r, err),
			"state": stateView(s.ctrl.State()),
		})
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"ref":   ref,
		"url":   "/api/v1/media/" + ref,
		"state": stateView(s.ctrl.State()),
	})
}

func (s *Server) handleRemoveMedia(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stateView(s.ctrl.RemoveMedia()))
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	item, err := s.opts.Media.Get(mux.Vars(r)["ref"])
	if err != nil {
		s.writeError(w, media.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", item.Media.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(item.Media.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(item.Media.Data)
}

type chatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, "text is required", http.StatusBadRequest)
		return
	}
	s.runAsync("chat", func(ctx context.Context) {
		s.ctrl.SendChat(ctx, req.Text)
	})
	s.accepted(w)
}

func (s *Server) handleToggleChat(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stateView(s.ctrl.ToggleChat()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.ctrl.SearchHistory(r.Context(), r.URL.Query().Get("q"))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

func (s *Server) handleViewHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.ctrl.History.Get(r.Context(), id); !ok {
		s.writeError(w, app.ErrHistoryNotFound.Error(), http.StatusNotFound)
		return
	}
	s.runAsync("history view", func(ctx context.Context) {
		if _, err := s.ctrl.ViewHistory(ctx, id); err != nil {
			s.log.Debug("History view finished with error", "id", id, "error", err)
		}
	})
	s.accepted(w)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stateView(s.ctrl.DeleteHistory(r.Context(), mux.Vars(r)["id"])))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stateView(s.ctrl.ClearHistory(r.Context())))
}

func (s *Server) handleToggleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stateView(s.ctrl.ToggleHistory(r.Context())))
}

type languageInfo struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	EnglishName string `json:"englishName"`
	Loaded      bool   `json:"loaded"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	loaded := make(map[string]bool)
	for _, c := range s.opts.Locales.Loaded() {
		loaded[c] = true
	}
	langs := make([]languageInfo, len(i18n.Supported))
	for i, l := range i18n.Supported {
		langs[i] = languageInfo{Code: l.Code, Name: l.Name, EnglishName: i18n.EnglishName(l.Code), Loaded: loaded[l.Code]}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active":    s.opts.Locales.Language(),
		"preferred": i18n.FromContext(r.Context()),
		"languages": langs,
	})
}

type languageRequest struct {
	Locale string `json:"locale"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, ok := i18n.Lookup(req.Locale); !ok {
		s.writeError(w, i18n.ErrUnknownLocale.Error()+": "+req.Locale, http.StatusBadRequest)
		return
	}
	s.runAsync("language change", func(ctx context.Context) {
		if _, err := s.ctrl.ChangeLanguage(ctx, req.Locale); err != nil {
			s.log.Debug("Language change finished with error", "locale", req.Locale, "error", err)
		}
	})
	s.accepted(w)
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	locale := mux.Vars(r)["locale"]
	if _, ok := i18n.Lookup(locale); !ok {
		s.writeError(w, i18n.ErrUnknownLocale.Error()+": "+locale, http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, s.opts.Locales.Bundle(locale))
}

// handleExportGuide returns the displayed guide as markdown, or as JSON
// with format=json.
func (s *Server) handleExportGuide(w http.ResponseWriter, r *http.Request) {
	g := s.ctrl.State().DisplayGuide()
	if g == nil {
		s.writeError(w, app.ErrNoGuide.Error(), http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Disposition", `attachment; filename="repair-guide.json"`)
		s.writeJSON(w, http.StatusOK, g)
		return
	}
	md := markdown.Guide(g, func(key string) string { return s.opts.Locales.T(key) })
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="repair-guide.md"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, md)
}

func (s *Server) handleSetStepBox(w http.ResponseWriter, r *http.Request) {
	var box guide.BoundingBox
	if err := decodeBody(r, &box); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.editStepBox(w, r, &box)
}

func (s *Server) handleClearStepBox(w http.ResponseWriter, r *http.Request) {
	s.editStepBox(w, r, nil)
}

// editStepBox checks the edit against the current guide, then applies it
// in the background because it may trigger a retranslation.
func (s *Server) editStepBox(w http.ResponseWriter, r *http.Request, box *guide.BoundingBox) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, "invalid step index", http.StatusBadRequest)
		return
	}
	st := s.ctrl.State()
	if st.Guide == nil {
		s.writeError(w, app.ErrNoGuide.Error(), http.StatusConflict)
		return
	}
	if _, _, err := guide.WithStepBox(st.Guide, index, box); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.runAsync("annotation edit", func(ctx context.Context) {
		if _, err := s.ctrl.EditAnnotation(ctx, index, box); err != nil {
			s.log.Debug("Annotation edit finished with error", "index", index, "error", err)
		}
	})
	s.accepted(w)
}

type draftBody struct {
	Text string `json:"text"`
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, draftBody{Text: s.ctrl.Draft()})
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftBody
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.ctrl.UpdateDraft(req.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, stateView(s.ctrl.DismissError()))
}
