// Package linker implements the link reconciliation engine: it matches nodes
// against rule identifiers, pairs their ports deterministically and applies
// the minimal set of idempotent link operations to satisfy each rule.
package linker

import (
	"fmt"

	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/topology"
)

// Engine applies one rule against one fresh topology snapshot.
type Engine struct {
	provider topology.Provider
	applier  *Applier
}

// NewEngine creates an engine over the given provider.
func NewEngine(provider topology.Provider) *Engine {
	return &Engine{
		provider: provider,
		applier:  NewApplier(provider),
	}
}

// ApplyRule reconciles a single rule. Only two failures abort the whole
// invocation: the topology query itself, and an empty source or destination
// set. Everything below that level is captured as a failed outcome so one
// bad node pair never blocks its siblings.
//
// The fan-out is two-level: every (source, destination) node pair in the
// cross product, then every port pair within it.
func (e *Engine) ApplyRule(rule rules.LinkRule) ([]Outcome, error) {
	// Compile once per invocation; every node in this pass reuses the
	// compiled patterns.
	if err := rule.Compile(); err != nil {
		return nil, err
	}

	snap, err := e.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	return e.applyToSnapshot(rule, snap)
}

func (e *Engine) applyToSnapshot(rule rules.LinkRule, snap *topology.Snapshot) ([]Outcome, error) {
	sources := rules.MatchingNodes(snap, &rule.Source)
	if len(sources) == 0 {
		return nil, &NoMatchingNodesError{Which: "source"}
	}
	destinations := rules.MatchingNodes(snap, &rule.Destination)
	if len(destinations) == 0 {
		return nil, &NoMatchingNodesError{Which: "destination"}
	}

	var outcomes []Outcome
	for _, source := range sources {
		for _, dest := range destinations {
			pairs, err := PairPorts(snap, source.ID, dest.ID)
			if err != nil {
				outcomes = append(outcomes, pairingFailure(source, dest, err))
				continue
			}
			for _, pair := range pairs {
				outcomes = append(outcomes, e.applier.Apply(pair, rule.LinkType, snap, rule.Name))
			}
		}
	}
	return outcomes, nil
}

func pairingFailure(source, dest topology.Node, err error) Outcome {
	var msg string
	if pce, ok := err.(*PortCountError); ok {
		msg = fmt.Sprintf("Port count mismatch for %s -> %s: %d output ports vs %d input ports",
			source.DisplayName(), dest.DisplayName(), pce.Outputs, pce.Inputs)
	} else {
		msg = fmt.Sprintf("No ports found to link %s -> %s", source.DisplayName(), dest.DisplayName())
	}
	return Outcome{Success: false, Message: msg}
}
