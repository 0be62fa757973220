package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/audiolink/audiolinkd/pkg/topology"
)

// handleNodes lists the nodes in the current snapshot.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap, err := s.snapshot()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to query topology: %v", err))
		return
	}
	s.respondJSON(w, http.StatusOK, NodesResponse{Nodes: snap.Nodes, Count: len(snap.Nodes)})
}

// handlePorts lists the ports in the current snapshot.
func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap, err := s.snapshot()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to query topology: %v", err))
		return
	}
	s.respondJSON(w, http.StatusOK, PortsResponse{Ports: snap.Ports, Count: len(snap.Ports)})
}

// handleGraphDOT renders the current graph in Graphviz DOT form.
func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap, err := s.snapshot()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to query topology: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, renderDOT(snap))
}

// renderDOT produces a left-to-right DOT digraph of the snapshot: one box
// per node, one edge per link, edges labeled with the connected port names.
func renderDOT(snap *topology.Snapshot) string {
	var b strings.Builder
	b.WriteString("digraph AudioGraph {\n")
	b.WriteString("    rankdir=LR;\n")
	b.WriteString("    node [shape=box, style=filled, fillcolor=lightblue];\n\n")

	nodes := make([]topology.Node, len(snap.Nodes))
	copy(nodes, snap.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	for _, n := range nodes {
		fmt.Fprintf(&b, "    node_%d [label=\"%s\\n(%d)\"];\n",
			n.ID, escapeDOT(n.DisplayName()), n.ID)
	}
	b.WriteString("\n")

	portNode := make(map[uint32]uint32, len(snap.Ports))
	portName := make(map[uint32]string, len(snap.Ports))
	for _, p := range snap.Ports {
		portNode[p.ID] = p.NodeID
		portName[p.ID] = p.Name
	}

	for _, l := range snap.Links {
		from, okFrom := portNode[l.OutputPortID]
		to, okTo := portNode[l.InputPortID]
		if !okFrom || !okTo {
			// Link to a port outside the snapshot; nothing to draw.
			continue
		}
		fmt.Fprintf(&b, "    node_%d -> node_%d [label=\"%s -> %s\"];\n",
			from, to,
			escapeDOT(portName[l.OutputPortID]),
			escapeDOT(portName[l.InputPortID]))
	}

	b.WriteString("}\n")
	return b.String()
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
