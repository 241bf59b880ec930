package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"biblestudy/internal/bible"
	"biblestudy/internal/chaptercache"
	"biblestudy/internal/gateway"
	"biblestudy/internal/logging"
	"biblestudy/internal/memory"
	"biblestudy/internal/services"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type cacheListResponse struct {
	Stats   chaptercache.Stats       `json:"stats"`
	Entries []chaptercache.EntryInfo `json:"entries"`
}

type cacheClearResponse struct {
	Removed int `json:"removed"`
}

type chatMessageRequest struct {
	Role    memory.Role `json:"role"`
	Content string      `json:"content"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		Status
		Cache chaptercache.Stats `json:"cache"`
	}{s.Status(), s.app.Cache.Stats()})
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	gateway.SetCORSHeaders(w.Header())
	query := r.URL.Query()
	book := strings.TrimSpace(query.Get("book"))
	if book == "" {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "server", "chapter", "book is required", nil))
		return
	}
	chapter, err := strconv.Atoi(strings.TrimSpace(query.Get("chapter")))
	if err != nil || chapter < 1 {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "server", "chapter",
			"chapter must be a positive integer", nil))
		return
	}
	translation := strings.TrimSpace(query.Get("translation"))
	if translation == "" {
		translation = bible.DefaultTranslation
	}

	ch, tier, err := s.app.Cache.FetchWithTier(r.Context(), book, chapter, translation)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Cache-Tier", tier.String())
	s.writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	gateway.SetCORSHeaders(w.Header())
	books, err := s.app.Books(r.Context(), r.URL.Query().Get("translation"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleCacheList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.app.Cache.Entries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cacheListResponse{Stats: s.app.Cache.Stats(), Entries: entries})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed, err := s.app.Cache.Clear(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cacheClearResponse{Removed: removed})
}

func (s *Server) pageFrom(w http.ResponseWriter, r *http.Request) (memory.Page, bool) {
	page, err := memory.ParsePage(r.PathValue("page"))
	if err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	return page, true
}

func (s *Server) handleMemoryGet(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageFrom(w, r)
	if !ok {
		return
	}
	state, err := s.app.Memory.Load(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleMemoryPut(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageFrom(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "server", "memory", "read body", err))
		return
	}
	if err := s.app.Memory.SaveJSON(r.Context(), page, raw); err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.app.Memory.Load(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleMemoryDelete(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageFrom(w, r)
	if !ok {
		return
	}
	if err := s.app.Memory.Clear(r.Context(), page); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemoryChat(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageFrom(w, r)
	if !ok {
		return
	}
	var req chatMessageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "server", "memory chat", "invalid JSON body", err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "server", "memory chat", "content is required", nil))
		return
	}
	msg, err := s.app.Memory.AddChatMessage(r.Context(), page, req.Role, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, s.logger, status, payload)
}

// writeError maps err's marker to an HTTP status. Server-side failures are
// logged; client errors are not.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}
