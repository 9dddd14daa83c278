package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/syncer"
)

const maxBodyBytes = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.Load(r.Context())
	if err != nil {
		s.log.Error("load bookmarks", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load bookmarks")
		return
	}
	if file := r.URL.Query().Get("file"); file != "" {
		list = bookmark.ForFile(list, file)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleReplaceBookmarks(w http.ResponseWriter, r *http.Request) {
	list, err := bookmark.ImportJSON(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Store.Replace(r.Context(), list); err != nil {
		s.log.Error("replace bookmarks", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save bookmarks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(list)})
}

// handleSync runs one request through the sync handler and answers with the
// result message it posted. A successful merge is written back to the store
// before responding.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var p syncer.Payload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid sync request: %v", err))
		return
	}

	local, err := s.deps.Store.Load(r.Context())
	if err != nil {
		s.log.Error("load bookmarks", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load bookmarks")
		return
	}

	target := &captureTarget{}
	merged := s.deps.Sync.HandleSync(r.Context(), p, local, target)

	result, ok := target.result()
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown sync action %q", p.Action))
		return
	}

	if merged != nil {
		if err := s.deps.Store.Replace(r.Context(), merged); err != nil {
			s.log.Error("store merged bookmarks", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "sync succeeded but saving merged bookmarks failed")
			return
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// captureTarget keeps the result message posted during one request.
type captureTarget struct {
	mu   sync.Mutex
	data any
	seen bool
}

func (t *captureTarget) PostMessage(name string, data any) {
	if name != syncer.ResultMessage {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = data
	t.seen = true
}

func (t *captureTarget) result() (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data, t.seen
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
