// Package events fans reconciliation results out to subscribers: in-process
// consumers, websocket clients and an optional nanomsg PUB socket.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/audiolink/audiolinkd/pkg/linker"
)

// Topics.
const (
	TopicRuleRun     = "rule.run"
	TopicRulesReload = "rules.reload"
)

// Event is one published occurrence. Every event gets a unique id so
// downstream consumers can deduplicate across reconnects.
type Event struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Rule      string           `json:"rule,omitempty"`
	RuleIndex int              `json:"rule_index,omitempty"`
	Created   int              `json:"links_created,omitempty"`
	Failed    int              `json:"links_failed,omitempty"`
	Error     string           `json:"error,omitempty"`
	Outcomes  []linker.Outcome `json:"outcomes,omitempty"`
	RuleCount int              `json:"rule_count,omitempty"`
}

// NewRuleRunEvent builds an event from one completed rule run.
func NewRuleRunEvent(rule string, index int, outcomes []linker.Outcome, created, failed int, err error) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      TopicRuleRun,
		Timestamp: time.Now(),
		Rule:      rule,
		RuleIndex: index,
		Created:   created,
		Failed:    failed,
		Outcomes:  outcomes,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// NewRulesReloadEvent marks a replacement of the active rule list.
func NewRulesReloadEvent(ruleCount int) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      TopicRulesReload,
		Timestamp: time.Now(),
		RuleCount: ruleCount,
	}
}
