package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/audiolink/audiolinkd/pkg/linker"
	"github.com/audiolink/audiolinkd/pkg/logging"
	"github.com/audiolink/audiolinkd/pkg/rules"
)

// handleLinks lists the active links with endpoint node names resolved.
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap, err := s.snapshot()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to query topology: %v", err))
		return
	}

	names := snap.NodeNames()
	portNode := make(map[uint32]uint32, len(snap.Ports))
	for _, p := range snap.Ports {
		portNode[p.ID] = p.NodeID
	}

	links := make([]LinkInfo, 0, len(snap.Links))
	for _, l := range snap.Links {
		links = append(links, LinkInfo{
			ID:         l.ID,
			OutputNode: names[portNode[l.OutputPortID]],
			OutputPort: l.OutputPortName,
			InputNode:  names[portNode[l.InputPortID]],
			InputPort:  l.InputPortName,
		})
	}

	s.respondJSON(w, http.StatusOK, LinksResponse{Links: links, Count: len(links)})
}

// handleApplyRule applies one rule ad hoc, outside the scheduled list.
func (s *Server) handleApplyRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var rule rules.LinkRule
	if !s.decodeJSON(w, r, &rule) {
		return
	}
	if err := rule.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid rule: %v", err))
		return
	}

	s.logger.Info("applying link rule", logging.Rule(rule.Name))

	outcomes, err := s.engine.ApplyRule(rule)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to apply rule: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, outcomesToResponse(outcomes, "Link rule applied"))
}

// handleBatchRules applies a list of rules in sequence. One rule's failure
// never stops the rest of the batch.
func (s *Server) handleBatchRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req BatchLinkRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	s.logger.Info("applying rule batch", logging.Count(len(req.Rules)))
	resp := s.applyRuleList(req.Rules, "Rule")
	s.respondJSON(w, http.StatusOK, resp)
}

// handleDefaultRules returns the built-in rule set.
func (s *Server) handleDefaultRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	list := rules.DefaultRules()
	s.respondJSON(w, http.StatusOK, RulesResponse{Rules: list, Count: len(list)})
}

// handleApplyDefaults applies the built-in rule set.
func (s *Server) handleApplyDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.logger.Info("applying default link rules")
	resp := s.applyRuleList(rules.DefaultRules(), "Default rule")
	s.respondJSON(w, http.StatusOK, resp)
}

// handleLinksStatus reports every active rule with its latest
// reconciliation status.
func (s *Server) handleLinksStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	list := s.store.Rules()
	statuses := s.tracker.All()

	out := make([]LinkRuleWithStatus, len(list))
	for i, rule := range list {
		entry := LinkRuleWithStatus{Index: i, Rule: rule}
		if st, ok := statuses[i]; ok {
			info := RuleStatusInfo{
				LinksCreated: st.LinksCreated,
				LinksFailed:  st.LinksFailed,
				LastError:    st.LastError,
				TotalRuns:    st.TotalRuns,
			}
			if st.LastRun != nil {
				formatted := st.LastRun.UTC().Format(time.RFC3339)
				ts := st.LastRun.Unix()
				info.LastRun = &formatted
				info.LastRunTimestamp = &ts
			}
			entry.Status = &info
		}
		out[i] = entry
	}

	s.respondJSON(w, http.StatusOK, LinkRuleStatusResponse{Rules: out})
}

// applyRuleList runs each rule through the engine and folds the outcomes
// into a batch response. label prefixes the per-rule messages.
func (s *Server) applyRuleList(list []rules.LinkRule, label string) BatchLinkResponse {
	resp := BatchLinkResponse{
		Total:   len(list),
		Results: make([]LinkResponse, 0, len(list)),
	}

	for i, rule := range list {
		if err := rule.Validate(); err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, LinkResponse{
				Success: false,
				Message: fmt.Sprintf("%s %d failed: %v", label, i+1, err),
			})
			continue
		}

		outcomes, err := s.engine.ApplyRule(rule)
		if err != nil {
			resp.Failed++
			s.logger.Error("rule application failed",
				logging.Rule(rule.Name),
				logging.Error(err))
			resp.Results = append(resp.Results, LinkResponse{
				Success: false,
				Message: fmt.Sprintf("%s %d failed: %v", label, i+1, err),
			})
			continue
		}

		result := outcomesToResponse(outcomes, "")
		if result.Message == "" {
			result.Message = fmt.Sprintf("%s %d applied", label, i+1)
		} else {
			result.Message = fmt.Sprintf("%s %d: %s", label, i+1, result.Message)
		}
		if result.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, result)
	}

	return resp
}

// outcomesToResponse folds per-pair outcomes into one response. Success
// requires every pair to have succeeded; messages are joined with "; ".
func outcomesToResponse(outcomes []linker.Outcome, emptyMessage string) LinkResponse {
	success := true
	messages := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Success {
			success = false
		}
		messages = append(messages, o.Message)
	}

	message := strings.Join(messages, "; ")
	if message == "" {
		message = emptyMessage
	}
	return LinkResponse{Success: success, Message: message}
}
