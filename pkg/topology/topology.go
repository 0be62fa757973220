// Package topology defines the point-in-time view of the audio routing graph
// and the provider contract used to query and mutate it. The reconciliation
// core depends only on this contract, never on the transport behind it.
package topology

import (
	"fmt"
)

// Direction of a port.
type Direction int

const (
	Output Direction = iota
	Input
)

// String returns the string representation of a port direction
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Node is a processing node in the routing graph.
type Node struct {
	ID         uint32 `json:"id"`
	NodeName   string `json:"node_name,omitempty"`
	NodeNick   string `json:"node_nick,omitempty"`
	ObjectPath string `json:"object_path,omitempty"`
}

// DisplayName returns the best human-readable name for the node.
// Falls back to "node-<id>" when the node carries no identity properties.
func (n Node) DisplayName() string {
	if n.NodeName != "" {
		return n.NodeName
	}
	if n.NodeNick != "" {
		return n.NodeNick
	}
	if n.ObjectPath != "" {
		return n.ObjectPath
	}
	return fmt.Sprintf("node-%d", n.ID)
}

// Port belongs to a node and carries one direction of audio.
type Port struct {
	ID        uint32    `json:"id"`
	NodeID    uint32    `json:"node_id"`
	Name      string    `json:"name"`
	FullName  string    `json:"full_name"` // "node_name:port_name", the global identifier
	Direction Direction `json:"direction"`
	Channel   string    `json:"channel,omitempty"`
}

// Link connects an output port to an input port.
type Link struct {
	ID             uint32 `json:"id"`
	OutputPortID   uint32 `json:"output_port_id"`
	InputPortID    uint32 `json:"input_port_id"`
	OutputPortName string `json:"output_port_name,omitempty"`
	InputPortName  string `json:"input_port_name,omitempty"`
}

// Snapshot is a point-in-time view of all nodes, ports and links.
type Snapshot struct {
	Nodes []Node
	Ports []Port
	Links []Link
}

// OutputPorts returns the output ports belonging to the given node.
func (s *Snapshot) OutputPorts(nodeID uint32) []Port {
	return s.portsOf(nodeID, Output)
}

// InputPorts returns the input ports belonging to the given node.
func (s *Snapshot) InputPorts(nodeID uint32) []Port {
	return s.portsOf(nodeID, Input)
}

func (s *Snapshot) portsOf(nodeID uint32, dir Direction) []Port {
	var out []Port
	for _, p := range s.Ports {
		if p.NodeID == nodeID && p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}

// LinkExists reports whether a link connects the two ports, matched by full name.
func (s *Snapshot) LinkExists(outputName, inputName string) bool {
	for _, l := range s.Links {
		if l.OutputPortName == outputName && l.InputPortName == inputName {
			return true
		}
	}
	return false
}

// LinkExistsByID reports whether a link connects the two ports, matched by id.
func (s *Snapshot) LinkExistsByID(outputID, inputID uint32) bool {
	for _, l := range s.Links {
		if l.OutputPortID == outputID && l.InputPortID == inputID {
			return true
		}
	}
	return false
}

// FindLinkID returns the id of the link between the two ports, if any.
func (s *Snapshot) FindLinkID(outputName, inputName string) (uint32, bool) {
	for _, l := range s.Links {
		if l.OutputPortName == outputName && l.InputPortName == inputName {
			return l.ID, true
		}
	}
	return 0, false
}

// NodeNames returns an id -> display name lookup for all nodes in the snapshot.
func (s *Snapshot) NodeNames() map[uint32]string {
	names := make(map[uint32]string, len(s.Nodes))
	for _, n := range s.Nodes {
		names[n.ID] = n.DisplayName()
	}
	return names
}

// QueryError wraps a failure to inspect the live topology. It is fatal to the
// current rule invocation only; the next due tick retries.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("topology query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// LinkProps are extra properties attached to a created link.
type LinkProps map[string]string

// Provider supplies topology snapshots and the primitive link operations.
type Provider interface {
	// Snapshot returns a fresh view of nodes, ports and links.
	Snapshot() (*Snapshot, error)
	// CreateLink connects an output port to an input port. Refs are port full
	// names ("node:port"). Returns the new link id when the transport reports one.
	CreateLink(outputRef, inputRef string, props LinkProps) (uint32, error)
	// RemoveLink removes a link by its id.
	RemoveLink(linkID uint32) error
	// RemoveLinkByRef removes the link between two ports identified by full name.
	RemoveLinkByRef(outputRef, inputRef string) error
}
