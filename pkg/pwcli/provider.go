package pwcli

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/audiolink/audiolinkd/pkg/topology"
)

// Provider implements topology.Provider on top of pw-cli and pw-link.
type Provider struct {
	// Timeout bounds every external command. A hung tool stalls only the
	// current rule evaluation, never the whole process.
	Timeout time.Duration

	// runner is swapped in tests.
	runner commandRunner
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// NewProvider creates a provider with the given per-command timeout.
func NewProvider(timeout time.Duration) *Provider {
	return &Provider{
		Timeout: timeout,
		runner:  runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s", name, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (p *Provider) run(name string, args ...string) ([]byte, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.runner(ctx, name, args...)
}

// Snapshot queries pw-cli and pw-link and assembles a full topology view.
func (p *Provider) Snapshot() (*topology.Snapshot, error) {
	out, err := p.run("pw-cli", "ls")
	if err != nil {
		return nil, &topology.QueryError{Op: "pw-cli ls", Err: err}
	}
	objects := parseObjects(string(out))

	linkOut, err := p.run("pw-link", "-l", "-I")
	if err != nil {
		return nil, &topology.QueryError{Op: "pw-link -l", Err: err}
	}
	links := parseLinks(string(linkOut))

	return buildSnapshot(objects, links), nil
}

// buildSnapshot converts raw pw-cli objects and pw-link listings into
// snapshot records. Ports need their parent node's name for the global
// "node:port" identifier; monitor ports are output copies and are skipped.
func buildSnapshot(objects []Object, links []rawLink) *topology.Snapshot {
	snap := &topology.Snapshot{}

	nodeNames := make(map[uint32]string)
	for _, o := range objects {
		if o.ObjectType != TypeNode {
			continue
		}
		snap.Nodes = append(snap.Nodes, topology.Node{
			ID:         o.ID,
			NodeName:   o.Get("node.name"),
			NodeNick:   o.Get("node.nick"),
			ObjectPath: o.Get("object.path"),
		})
		nodeNames[o.ID] = o.Get("node.name")
	}

	for _, o := range objects {
		if o.ObjectType != TypePort {
			continue
		}
		if o.Get("port.monitor") == "true" {
			continue
		}
		nodeID := parseUint32(o.Get("node.id"))
		if nodeID == 0 && o.Get("node.id") != "0" {
			continue
		}
		// A port whose parent node is missing or unnamed has no usable
		// "node:port" identifier and cannot be linked.
		nodeName := nodeNames[nodeID]
		if nodeName == "" {
			continue
		}
		name := o.Get("port.name")
		if name == "" {
			name = o.Get("port.alias")
		}
		if name == "" {
			continue
		}
		var dir topology.Direction
		switch o.Get("port.direction") {
		case "out":
			dir = topology.Output
		case "in":
			dir = topology.Input
		default:
			continue
		}
		snap.Ports = append(snap.Ports, topology.Port{
			ID:        o.ID,
			NodeID:    nodeID,
			Name:      name,
			FullName:  fmt.Sprintf("%s:%s", nodeName, name),
			Direction: dir,
			Channel:   o.Get("audio.channel"),
		})
	}

	for _, l := range links {
		snap.Links = append(snap.Links, topology.Link{
			ID:             l.id,
			OutputPortID:   l.outputPortID,
			InputPortID:    l.inputPortID,
			OutputPortName: l.outputPortName,
			InputPortName:  l.inputPortName,
		})
	}

	return snap
}

// CreateLink connects two ports via pw-link. Extra properties ride along with
// -p/--props so created links can linger and carry the owning rule's name.
func (p *Provider) CreateLink(outputRef, inputRef string, props topology.LinkProps) (uint32, error) {
	args := []string{"-I"}
	if len(props) > 0 {
		args = append(args, "-p", formatProps(props))
	}
	args = append(args, outputRef, inputRef)

	out, err := p.run("pw-link", args...)
	if err != nil {
		return 0, err
	}
	// With -I, pw-link prints the new link id on success.
	id := parseUint32(strings.TrimSpace(string(out)))
	return id, nil
}

// RemoveLink removes a link by id.
func (p *Provider) RemoveLink(linkID uint32) error {
	_, err := p.run("pw-link", "-d", fmt.Sprintf("%d", linkID))
	return err
}

// RemoveLinkByRef removes the link between two ports identified by full name.
func (p *Provider) RemoveLinkByRef(outputRef, inputRef string) error {
	_, err := p.run("pw-link", "-d", outputRef, inputRef)
	return err
}

// formatProps renders props in the SPA dictionary syntax pw-link accepts.
// Keys are sorted so the command line is stable across runs.
func formatProps(props topology.LinkProps) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s='%s'", k, props[k])
	}
	b.WriteString(" }")
	return b.String()
}
