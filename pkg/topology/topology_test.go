package topology

import (
	"errors"
	"testing"
	"time"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Nodes: []Node{
			{ID: 38, NodeName: "effect_output.proc"},
			{ID: 66, NodeNick: "Speaker EQ"},
			{ID: 70},
		},
		Ports: []Port{
			{ID: 90, NodeID: 38, Name: "output_FL", FullName: "effect_output.proc:output_FL", Direction: Output},
			{ID: 91, NodeID: 38, Name: "output_FR", FullName: "effect_output.proc:output_FR", Direction: Output},
			{ID: 82, NodeID: 66, Name: "playback_FL", FullName: "speakereq2x2:playback_FL", Direction: Input},
		},
		Links: []Link{
			{ID: 92, OutputPortID: 90, InputPortID: 82,
				OutputPortName: "effect_output.proc:output_FL", InputPortName: "speakereq2x2:playback_FL"},
		},
	}
}

func TestDisplayName(t *testing.T) {
	s := testSnapshot()
	if got := s.Nodes[0].DisplayName(); got != "effect_output.proc" {
		t.Errorf("expected node.name, got %s", got)
	}
	if got := s.Nodes[1].DisplayName(); got != "Speaker EQ" {
		t.Errorf("expected node.nick fallback, got %s", got)
	}
	if got := s.Nodes[2].DisplayName(); got != "node-70" {
		t.Errorf("expected synthetic name, got %s", got)
	}
}

func TestPortSelection(t *testing.T) {
	s := testSnapshot()
	outs := s.OutputPorts(38)
	if len(outs) != 2 {
		t.Fatalf("expected 2 output ports, got %d", len(outs))
	}
	ins := s.InputPorts(66)
	if len(ins) != 1 {
		t.Fatalf("expected 1 input port, got %d", len(ins))
	}
	if len(s.InputPorts(38)) != 0 {
		t.Error("node 38 should have no input ports")
	}
}

func TestLinkLookups(t *testing.T) {
	s := testSnapshot()
	if !s.LinkExists("effect_output.proc:output_FL", "speakereq2x2:playback_FL") {
		t.Error("existing link not found by name")
	}
	if s.LinkExists("effect_output.proc:output_FR", "speakereq2x2:playback_FL") {
		t.Error("phantom link found")
	}
	if !s.LinkExistsByID(90, 82) {
		t.Error("existing link not found by id")
	}
	id, ok := s.FindLinkID("effect_output.proc:output_FL", "speakereq2x2:playback_FL")
	if !ok || id != 92 {
		t.Errorf("FindLinkID = %d, %v", id, ok)
	}
}

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Snapshot() (*Snapshot, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &Snapshot{}, nil
}

func (p *countingProvider) CreateLink(out, in string, props LinkProps) (uint32, error) {
	return 0, nil
}
func (p *countingProvider) RemoveLink(id uint32) error           { return nil }
func (p *countingProvider) RemoveLinkByRef(out, in string) error { return nil }

func TestSnapshotCacheReuse(t *testing.T) {
	p := &countingProvider{}
	c := NewSnapshotCache(p, time.Minute)

	if _, err := c.Get(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(); err != nil {
		t.Fatal(err)
	}
	if p.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", p.calls)
	}

	c.Invalidate()
	if _, err := c.Get(); err != nil {
		t.Fatal(err)
	}
	if p.calls != 2 {
		t.Errorf("expected refresh after Invalidate, got %d calls", p.calls)
	}
}

func TestSnapshotCacheZeroTTL(t *testing.T) {
	p := &countingProvider{}
	c := NewSnapshotCache(p, 0)
	c.Get()
	c.Get()
	if p.calls != 2 {
		t.Errorf("zero ttl should bypass cache, got %d calls", p.calls)
	}
}

func TestSnapshotCacheError(t *testing.T) {
	p := &countingProvider{err: errors.New("socket gone")}
	c := NewSnapshotCache(p, time.Minute)
	if _, err := c.Get(); err == nil {
		t.Fatal("expected error from provider")
	}
}

func TestQueryErrorUnwrap(t *testing.T) {
	inner := errors.New("pw-cli not found")
	err := &QueryError{Op: "list", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("QueryError should unwrap to its cause")
	}
}

func TestSnapshotCacheObserver(t *testing.T) {
	p := &countingProvider{}
	c := NewSnapshotCache(p, time.Minute)

	var hits, misses int
	c.Observer = func(hit bool, queryTime time.Duration, err error) {
		if hit {
			hits++
		} else {
			misses++
			if err != nil {
				t.Errorf("unexpected query error: %v", err)
			}
		}
	}

	c.Get()
	c.Get()
	if misses != 1 || hits != 1 {
		t.Errorf("got %d misses and %d hits, want 1 and 1", misses, hits)
	}

	c.Invalidate()
	c.Get()
	if misses != 2 {
		t.Errorf("expected refresh after Invalidate to count as a miss, got %d", misses)
	}
}

func TestSnapshotCacheObserverSeesError(t *testing.T) {
	p := &countingProvider{err: errors.New("socket gone")}
	c := NewSnapshotCache(p, time.Minute)

	var sawErr error
	c.Observer = func(hit bool, queryTime time.Duration, err error) {
		sawErr = err
	}

	c.Get()
	if sawErr == nil {
		t.Error("observer did not see the provider error")
	}
}
