package api

import (
	"fmt"
	"net/http"

	"github.com/audiolink/audiolinkd/pkg/events"
	"github.com/audiolink/audiolinkd/pkg/logging"
	"github.com/audiolink/audiolinkd/pkg/rules"
)

// handleRules reads or replaces the active rule list. Replacement is
// wholesale: the new list is validated as a unit and swapped in atomically,
// and the scheduler starts over against it.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetRules(w, r)
	case http.MethodPut:
		s.requireAuth(s.handlePutRules)(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleGetRules(w http.ResponseWriter, _ *http.Request) {
	list := s.store.Rules()
	s.respondJSON(w, http.StatusOK, RulesResponse{Rules: list, Count: len(list)})
}

func (s *Server) handlePutRules(w http.ResponseWriter, r *http.Request) {
	var list []rules.LinkRule
	if !s.decodeJSON(w, r, &list) {
		return
	}
	if err := rules.ValidateAll(list); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid rules: %v", err))
		return
	}

	s.store.Replace(list)
	if s.sched != nil {
		s.sched.ResetSchedule()
	}
	if s.bus != nil {
		s.bus.Publish(events.NewRulesReloadEvent(len(list)))
	}
	if s.metrics != nil {
		s.metrics.ActiveRules.Set(float64(len(list)))
	}

	s.logger.Info("rule list replaced", logging.Count(len(list)))
	s.respondJSON(w, http.StatusOK, RulesUpdateResponse{
		Message: "Rules replaced",
		Count:   len(list),
	})
}
