package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/audiolink/audiolinkd/pkg/history"
)

const defaultHistoryLimit = 50

// handleHistory lists recent rule runs, newest first. Supports ?limit= and
// ?rule= filters.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.history == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Run history not available")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	var (
		runs []history.RunRecord
		err  error
	)
	if rule := r.URL.Query().Get("rule"); rule != "" {
		runs, err = s.history.ByRule(r.Context(), rule, limit)
	} else {
		runs, err = s.history.Recent(r.Context(), limit)
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read history: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, HistoryResponse{Runs: runs, Count: len(runs)})
}
