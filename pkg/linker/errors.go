package linker

import (
	"fmt"
)

// NoMatchingNodesError fails a whole rule invocation: with no source or no
// destination candidates there is nothing to fan out over.
type NoMatchingNodesError struct {
	Which string // "source" or "destination"
}

func (e *NoMatchingNodesError) Error() string {
	return fmt.Sprintf("no %s nodes found matching criteria", e.Which)
}

// PortCountError is scoped to one (source, destination) node pair. Sibling
// node pairs in the same rule proceed normally.
type PortCountError struct {
	Outputs int
	Inputs  int
}

func (e *PortCountError) Error() string {
	return fmt.Sprintf("port count mismatch: %d output ports vs %d input ports", e.Outputs, e.Inputs)
}

// ErrNoPorts marks a node pair where neither side has any ports to pair.
var ErrNoPorts = fmt.Errorf("no ports found to link")
