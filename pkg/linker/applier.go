package linker

import (
	"fmt"

	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/topology"
)

// Outcome records the result of one port-pair operation.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Applier turns port pairs into idempotent link operations against the
// provider. An existing-link lookup on the snapshot avoids duplicate work:
// re-applying an unchanged rule against an unchanged topology performs no
// collaborator calls at all.
type Applier struct {
	provider topology.Provider
}

// NewApplier creates an applier over the given provider.
func NewApplier(provider topology.Provider) *Applier {
	return &Applier{provider: provider}
}

// Apply performs one create or remove operation for the pair. The ruleName
// tags created links (object.name) and object.linger keeps them alive after
// this client disconnects.
func (a *Applier) Apply(pair PortPair, linkType rules.LinkType, snap *topology.Snapshot, ruleName string) Outcome {
	if linkType == rules.Unlink {
		return a.unlink(pair, snap)
	}
	return a.link(pair, snap, ruleName)
}

func (a *Applier) link(pair PortPair, snap *topology.Snapshot, ruleName string) Outcome {
	out, in := pair.Output.FullName, pair.Input.FullName

	if snap.LinkExists(out, in) || snap.LinkExistsByID(pair.Output.ID, pair.Input.ID) {
		return Outcome{
			Success: true,
			Message: fmt.Sprintf("Link already exists: %s -> %s", out, in),
		}
	}

	linkID, err := a.provider.CreateLink(out, in, topology.LinkProps{
		"object.linger": "true",
		"object.name":   ruleName,
	})
	if err != nil {
		return Outcome{
			Success: false,
			Message: fmt.Sprintf("Failed to create link %s -> %s: %v", out, in, err),
		}
	}
	return Outcome{
		Success: true,
		Message: fmt.Sprintf("Created link %d: %s -> %s", linkID, out, in),
	}
}

func (a *Applier) unlink(pair PortPair, snap *topology.Snapshot) Outcome {
	out, in := pair.Output.FullName, pair.Input.FullName

	linkID, ok := snap.FindLinkID(out, in)
	if !ok {
		// No-op removal is a success, not a failure.
		return Outcome{
			Success: true,
			Message: fmt.Sprintf("Link does not exist: %s -> %s", out, in),
		}
	}

	if err := a.provider.RemoveLink(linkID); err != nil {
		return Outcome{
			Success: false,
			Message: fmt.Sprintf("Failed to remove link %s -> %s: %v", out, in, err),
		}
	}
	return Outcome{
		Success: true,
		Message: fmt.Sprintf("Removed link: %s -> %s", out, in),
	}
}
