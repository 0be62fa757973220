// Package rules defines the declarative link rules that drive reconciliation:
// what to match, how to connect it, and how often to re-check.
package rules

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

// LinkType selects whether a rule connects or disconnects matched ports.
type LinkType string

const (
	Link   LinkType = "link"
	Unlink LinkType = "unlink"
)

// Severity names a reporting level carried in rule configuration.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Level maps a severity to its logging level. Unknown values fall back the
// same way ParseLevel does.
func (s Severity) Level() logging.Level {
	return logging.ParseLevel(string(s))
}

// NodeIdentifier selects nodes by regular expressions over their identity
// properties. A node matches when ANY provided pattern matches the
// corresponding property present on the node. The OR semantics come straight
// from the original behavior and are pinned by TestMatchAnyProvidedField.
type NodeIdentifier struct {
	NodeName   *string `json:"node.name,omitempty" validate:"omitempty,regexp"`
	NodeNick   *string `json:"node.nick,omitempty" validate:"omitempty,regexp"`
	ObjectPath *string `json:"object.path,omitempty" validate:"omitempty,regexp"`

	nodeNameRe   *regexp.Regexp
	nodeNickRe   *regexp.Regexp
	objectPathRe *regexp.Regexp
}

// Compile compiles the provided patterns. Idempotent; called at rule load so
// matching never compiles per node.
func (id *NodeIdentifier) Compile() error {
	var err error
	if id.NodeName != nil && id.nodeNameRe == nil {
		if id.nodeNameRe, err = regexp.Compile(*id.NodeName); err != nil {
			return fmt.Errorf("node.name pattern %q: %w", *id.NodeName, err)
		}
	}
	if id.NodeNick != nil && id.nodeNickRe == nil {
		if id.nodeNickRe, err = regexp.Compile(*id.NodeNick); err != nil {
			return fmt.Errorf("node.nick pattern %q: %w", *id.NodeNick, err)
		}
	}
	if id.ObjectPath != nil && id.objectPathRe == nil {
		if id.objectPathRe, err = regexp.Compile(*id.ObjectPath); err != nil {
			return fmt.Errorf("object.path pattern %q: %w", *id.ObjectPath, err)
		}
	}
	return nil
}

// LinkRule describes one desired (or undesired) set of connections between
// matched source and destination nodes. Rules are immutable value objects;
// the list is only ever replaced as a whole.
type LinkRule struct {
	// Name tags created links (object.name) so they can be identified later.
	Name        string         `json:"name" validate:"required"`
	Source      NodeIdentifier `json:"source"`
	Destination NodeIdentifier `json:"destination"`
	LinkType    LinkType       `json:"type" validate:"oneof=link unlink"`
	// LinkAtStartup applies the rule once before the periodic loop starts.
	LinkAtStartup bool `json:"link_at_startup"`
	// RelinkEvery is the re-check interval in seconds. 0 applies the rule
	// once only.
	RelinkEvery uint64 `json:"relink_every"`
	// Reporting severities for aggregate successes and failures.
	InfoLevel  Severity `json:"info_level" validate:"oneof=debug info warn error"`
	ErrorLevel Severity `json:"error_level" validate:"oneof=debug info warn error"`
}

// UnmarshalJSON applies the documented defaults for absent fields:
// link_at_startup=true, relink_every=0, info_level=info, error_level=error.
func (r *LinkRule) UnmarshalJSON(data []byte) error {
	type plain LinkRule
	tmp := plain{
		LinkAtStartup: true,
		InfoLevel:     SeverityInfo,
		ErrorLevel:    SeverityError,
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*r = LinkRule(tmp)
	return nil
}

// Compile compiles both identifiers' patterns.
func (r *LinkRule) Compile() error {
	if err := r.Source.Compile(); err != nil {
		return fmt.Errorf("rule %q source: %w", r.Name, err)
	}
	if err := r.Destination.Compile(); err != nil {
		return fmt.Errorf("rule %q destination: %w", r.Name, err)
	}
	return nil
}
