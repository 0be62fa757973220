package linker

import (
	"fmt"
	"sync"

	"github.com/audiolink/audiolinkd/pkg/topology"
)

// fakeProvider is an in-memory topology used across the engine and scheduler
// tests. Created links become part of subsequent snapshots, like the real
// audio server.
type fakeProvider struct {
	mu     sync.Mutex
	nodes  []topology.Node
	ports  []topology.Port
	links  []topology.Link
	nextID uint32

	creates   int
	removes   int
	snapshots int

	snapshotErr error
	createErr   error
	removeErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{nextID: 100}
}

func (f *fakeProvider) addNode(id uint32, name string) {
	f.nodes = append(f.nodes, topology.Node{ID: id, NodeName: name})
}

func (f *fakeProvider) addPort(id, nodeID uint32, name string, dir topology.Direction) {
	var nodeName string
	for _, n := range f.nodes {
		if n.ID == nodeID {
			nodeName = n.NodeName
		}
	}
	f.ports = append(f.ports, topology.Port{
		ID:        id,
		NodeID:    nodeID,
		Name:      name,
		FullName:  fmt.Sprintf("%s:%s", nodeName, name),
		Direction: dir,
	})
}

func (f *fakeProvider) Snapshot() (*topology.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	snap := &topology.Snapshot{
		Nodes: append([]topology.Node(nil), f.nodes...),
		Ports: append([]topology.Port(nil), f.ports...),
		Links: append([]topology.Link(nil), f.links...),
	}
	return snap, nil
}

func (f *fakeProvider) CreateLink(outputRef, inputRef string, props topology.LinkProps) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return 0, f.createErr
	}
	var outID, inID uint32
	for _, p := range f.ports {
		if p.FullName == outputRef {
			outID = p.ID
		}
		if p.FullName == inputRef {
			inID = p.ID
		}
	}
	f.nextID++
	f.links = append(f.links, topology.Link{
		ID:             f.nextID,
		OutputPortID:   outID,
		InputPortID:    inID,
		OutputPortName: outputRef,
		InputPortName:  inputRef,
	})
	return f.nextID, nil
}

func (f *fakeProvider) RemoveLink(linkID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	for i, l := range f.links {
		if l.ID == linkID {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such link %d", linkID)
}

func (f *fakeProvider) RemoveLinkByRef(outputRef, inputRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	for i, l := range f.links {
		if l.OutputPortName == outputRef && l.InputPortName == inputRef {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such link %s -> %s", outputRef, inputRef)
}

func (f *fakeProvider) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// stereoTopology builds one source node with two output ports and one
// destination node with two input ports.
func stereoTopology() *fakeProvider {
	f := newFakeProvider()
	f.addNode(10, "effect_output.proc")
	f.addNode(20, "speakereq2x2")
	f.addPort(11, 10, "output_FL", topology.Output)
	f.addPort(12, 10, "output_FR", topology.Output)
	f.addPort(21, 20, "playback_FL", topology.Input)
	f.addPort(22, 20, "playback_FR", topology.Input)
	return f
}
