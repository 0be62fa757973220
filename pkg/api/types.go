package api

import (
	"github.com/audiolink/audiolinkd/pkg/history"
	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/topology"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// LinkInfo is one active link with its endpoint node names resolved.
type LinkInfo struct {
	ID         uint32 `json:"id"`
	OutputNode string `json:"output_node,omitempty"`
	OutputPort string `json:"output_port"`
	InputNode  string `json:"input_node,omitempty"`
	InputPort  string `json:"input_port"`
}

// LinksResponse lists the active links.
type LinksResponse struct {
	Links []LinkInfo `json:"links"`
	Count int        `json:"count"`
}

// LinkResponse reports the result of applying one link rule. Success means
// every port pair succeeded; Message joins the per-pair messages with "; ".
type LinkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BatchLinkRequest applies a list of rules in sequence.
type BatchLinkRequest struct {
	Rules []rules.LinkRule `json:"rules"`
}

// BatchLinkResponse summarizes a batch application.
type BatchLinkResponse struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Results    []LinkResponse `json:"results"`
}

// RuleStatusInfo is the wire form of a rule's reconciliation status, with
// the last run formatted both as RFC 3339 and as a unix timestamp.
type RuleStatusInfo struct {
	LastRun          *string `json:"last_run"`
	LastRunTimestamp *int64  `json:"last_run_timestamp"`
	LinksCreated     int     `json:"links_created"`
	LinksFailed      int     `json:"links_failed"`
	LastError        string  `json:"last_error,omitempty"`
	TotalRuns        uint64  `json:"total_runs"`
}

// LinkRuleWithStatus pairs a rule with its status. Status is null for rules
// that have never run.
type LinkRuleWithStatus struct {
	Index  int             `json:"index"`
	Rule   rules.LinkRule  `json:"rule"`
	Status *RuleStatusInfo `json:"status"`
}

// LinkRuleStatusResponse lists every active rule with its status.
type LinkRuleStatusResponse struct {
	Rules []LinkRuleWithStatus `json:"rules"`
}

// RulesResponse is the active rule list.
type RulesResponse struct {
	Rules []rules.LinkRule `json:"rules"`
	Count int              `json:"count"`
}

// RulesUpdateResponse acknowledges a wholesale rule replacement.
type RulesUpdateResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// NodesResponse lists the nodes in the current snapshot.
type NodesResponse struct {
	Nodes []topology.Node `json:"nodes"`
	Count int             `json:"count"`
}

// PortsResponse lists the ports in the current snapshot.
type PortsResponse struct {
	Ports []topology.Port `json:"ports"`
	Count int             `json:"count"`
}

// HistoryResponse lists recent rule runs, newest first.
type HistoryResponse struct {
	Runs  []history.RunRecord `json:"runs"`
	Count int                 `json:"count"`
}
