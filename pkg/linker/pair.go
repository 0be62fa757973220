package linker

import (
	"sort"

	"github.com/audiolink/audiolinkd/pkg/topology"
)

// PortPair connects one output port to one input port.
type PortPair struct {
	Output topology.Port
	Input  topology.Port
}

// PairPorts pairs the source node's output ports with the destination node's
// input ports, index for index. Both sides are sorted ascending by port id
// first: id order is a cheap deterministic proxy for channel order (FL/FR)
// when no channel metadata is consulted.
//
// The counts must agree exactly; a mismatch or an empty pairing fails this
// one node pair only.
func PairPorts(snap *topology.Snapshot, sourceNodeID, destNodeID uint32) ([]PortPair, error) {
	outputs := snap.OutputPorts(sourceNodeID)
	inputs := snap.InputPorts(destNodeID)

	if len(outputs) != len(inputs) {
		return nil, &PortCountError{Outputs: len(outputs), Inputs: len(inputs)}
	}
	if len(outputs) == 0 {
		return nil, ErrNoPorts
	}

	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ID < outputs[j].ID })
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].ID < inputs[j].ID })

	pairs := make([]PortPair, len(outputs))
	for i := range outputs {
		pairs[i] = PortPair{Output: outputs[i], Input: inputs[i]}
	}
	return pairs, nil
}
