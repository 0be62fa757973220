package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/audiolink/audiolinkd/pkg/linker"
	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/status"
	"github.com/audiolink/audiolinkd/pkg/topology"
)

// fakeProvider is an in-memory topology for handler tests. Created links
// show up in subsequent snapshots.
type fakeProvider struct {
	mu          sync.Mutex
	nodes       []topology.Node
	ports       []topology.Port
	links       []topology.Link
	nextID      uint32
	snapshotErr error
}

func (f *fakeProvider) Snapshot() (*topology.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return &topology.Snapshot{
		Nodes: append([]topology.Node(nil), f.nodes...),
		Ports: append([]topology.Port(nil), f.ports...),
		Links: append([]topology.Link(nil), f.links...),
	}, nil
}

func (f *fakeProvider) CreateLink(outputRef, inputRef string, props topology.LinkProps) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	for i, l := range f.links {
		if l.OutputPortName == outputRef && l.InputPortName == inputRef {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such link %s -> %s", outputRef, inputRef)
}

// stereoProvider has one stereo source and one stereo sink, unconnected.
func stereoProvider() *fakeProvider {
	return &fakeProvider{
		nextID: 100,
		nodes: []topology.Node{
			{ID: 10, NodeName: "effect_output.proc"},
			{ID: 20, NodeName: "speakereq2x2"},
		},
		ports: []topology.Port{
			{ID: 11, NodeID: 10, Name: "output_FL", FullName: "effect_output.proc:output_FL", Direction: topology.Output, Channel: "FL"},
			{ID: 12, NodeID: 10, Name: "output_FR", FullName: "effect_output.proc:output_FR", Direction: topology.Output, Channel: "FR"},
			{ID: 21, NodeID: 20, Name: "playback_FL", FullName: "speakereq2x2:playback_FL", Direction: topology.Input, Channel: "FL"},
			{ID: 22, NodeID: 20, Name: "playback_FR", FullName: "speakereq2x2:playback_FR", Direction: topology.Input, Channel: "FR"},
		},
	}
}

func strptr(s string) *string { return &s }

func stereoRule() rules.LinkRule {
	rule := rules.LinkRule{
		Name:        "stereo",
		Source:      rules.NodeIdentifier{NodeName: strptr("^effect_output")},
		Destination: rules.NodeIdentifier{NodeName: strptr("^speakereq")},
		LinkType:    rules.Link,
		InfoLevel:   rules.SeverityInfo,
		ErrorLevel:  rules.SeverityError,
	}
	return rule
}

type testEnv struct {
	provider *fakeProvider
	store    *rules.Store
	tracker  *status.Tracker
	server   *httptest.Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	provider := stereoProvider()
	if opts.Provider == nil {
		opts.Provider = provider
	} else {
		provider, _ = opts.Provider.(*fakeProvider)
	}
	if opts.Rules == nil {
		opts.Rules = rules.NewStore(nil)
	}
	if opts.Tracker == nil {
		opts.Tracker = status.NewTracker()
	}
	if opts.Engine == nil {
		opts.Engine = linker.NewEngine(opts.Provider)
	}

	apiServer := NewServer(opts)
	srv := httptest.NewServer(apiServer.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		provider: provider,
		store:    opts.Rules,
		tracker:  opts.Tracker,
		server:   srv,
	}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestListLinksResolvesNodeNames(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.provider.links = []topology.Link{{
		ID:             100,
		OutputPortID:   11,
		InputPortID:    21,
		OutputPortName: "effect_output.proc:output_FL",
		InputPortName:  "speakereq2x2:playback_FL",
	}}

	resp := env.get(t, "/api/v1/links")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody[LinksResponse](t, resp)
	if body.Count != 1 || len(body.Links) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	link := body.Links[0]
	if link.OutputNode != "effect_output.proc" || link.InputNode != "speakereq2x2" {
		t.Errorf("node names not resolved: %+v", link)
	}
	if link.OutputPort != "effect_output.proc:output_FL" {
		t.Errorf("unexpected output port: %+v", link)
	}
}

func TestListLinksSnapshotError(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.provider.mu.Lock()
	env.provider.snapshotErr = fmt.Errorf("pw-cli: connection refused")
	env.provider.mu.Unlock()

	resp := env.get(t, "/api/v1/links")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestApplyRuleEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})

	body := `{
		"name": "stereo",
		"source": {"node.name": "^effect_output"},
		"destination": {"node.name": "^speakereq"},
		"type": "link"
	}`
	resp := env.post(t, "/api/v1/links/apply", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := decodeBody[LinkResponse](t, resp)
	if !result.Success {
		t.Errorf("expected success: %+v", result)
	}
	if !strings.Contains(result.Message, "Created link") {
		t.Errorf("unexpected message: %q", result.Message)
	}

	// Both channel pairs got connected.
	snap, _ := env.provider.Snapshot()
	if len(snap.Links) != 2 {
		t.Errorf("got %d links, want 2", len(snap.Links))
	}
}

func TestApplyRuleIdempotentMessage(t *testing.T) {
	env := newTestEnv(t, Options{})

	body := `{
		"name": "stereo",
		"source": {"node.name": "^effect_output"},
		"destination": {"node.name": "^speakereq"},
		"type": "link"
	}`
	env.post(t, "/api/v1/links/apply", body).Body.Close()

	resp := env.post(t, "/api/v1/links/apply", body)
	result := decodeBody[LinkResponse](t, resp)
	if !result.Success {
		t.Errorf("expected success: %+v", result)
	}
	if !strings.Contains(result.Message, "Link already exists") {
		t.Errorf("unexpected message: %q", result.Message)
	}
}

func TestApplyRuleInvalidPattern(t *testing.T) {
	env := newTestEnv(t, Options{})

	body := `{
		"name": "broken",
		"source": {"node.name": "["},
		"destination": {"node.name": "^speakereq"},
		"type": "link"
	}`
	resp := env.post(t, "/api/v1/links/apply", body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestApplyRuleNoMatches(t *testing.T) {
	env := newTestEnv(t, Options{})

	body := `{
		"name": "nothing",
		"source": {"node.name": "^no_such_node$"},
		"destination": {"node.name": "^speakereq"},
		"type": "link"
	}`
	resp := env.post(t, "/api/v1/links/apply", body)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	errBody := decodeBody[ErrorResponse](t, resp)
	if !strings.Contains(errBody.Message, "no source nodes found matching criteria") {
		t.Errorf("unexpected message: %q", errBody.Message)
	}
}

func TestBatchRules(t *testing.T) {
	env := newTestEnv(t, Options{})

	body := `{"rules": [
		{
			"name": "stereo",
			"source": {"node.name": "^effect_output"},
			"destination": {"node.name": "^speakereq"},
			"type": "link"
		},
		{
			"name": "nothing",
			"source": {"node.name": "^no_such_node$"},
			"destination": {"node.name": "^speakereq"},
			"type": "link"
		}
	]}`
	resp := env.post(t, "/api/v1/links/batch", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := decodeBody[BatchLinkResponse](t, resp)
	if result.Total != 2 || result.Successful != 1 || result.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if !strings.HasPrefix(result.Results[0].Message, "Rule 1:") {
		t.Errorf("unexpected first message: %q", result.Results[0].Message)
	}
	if !strings.HasPrefix(result.Results[1].Message, "Rule 2 failed:") {
		t.Errorf("unexpected second message: %q", result.Results[1].Message)
	}
}

func TestDefaultRulesEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.get(t, "/api/v1/links/default")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody[RulesResponse](t, resp)
	if body.Count == 0 {
		t.Fatal("expected built-in rules")
	}
	if body.Rules[0].Name != "speakereq-to-playback" {
		t.Errorf("unexpected first rule: %+v", body.Rules[0])
	}
}

func TestApplyDefaultsEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.post(t, "/api/v1/links/apply-defaults", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// The built-in patterns match nothing in the stereo fixture.
	result := decodeBody[BatchLinkResponse](t, resp)
	if result.Total == 0 || result.Failed != result.Total {
		t.Errorf("unexpected counts: %+v", result)
	}
	if !strings.HasPrefix(result.Results[0].Message, "Default rule 1 failed:") {
		t.Errorf("unexpected message: %q", result.Results[0].Message)
	}
}

func TestLinksStatus(t *testing.T) {
	store := rules.NewStore([]rules.LinkRule{stereoRule(), stereoRule()})
	tracker := status.NewTracker()
	tracker.Update(0, 2, 0, "")

	env := newTestEnv(t, Options{Rules: store, Tracker: tracker})

	resp := env.get(t, "/api/v1/links/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody[LinkRuleStatusResponse](t, resp)
	if len(body.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(body.Rules))
	}

	first := body.Rules[0]
	if first.Status == nil {
		t.Fatal("expected status for rule 0")
	}
	if first.Status.LinksCreated != 2 || first.Status.TotalRuns != 1 {
		t.Errorf("unexpected status: %+v", first.Status)
	}
	if first.Status.LastRun == nil || first.Status.LastRunTimestamp == nil {
		t.Error("expected formatted last run")
	}

	if body.Rules[1].Status != nil {
		t.Errorf("expected null status for never-run rule, got %+v", body.Rules[1].Status)
	}
}

func TestGetRules(t *testing.T) {
	store := rules.NewStore([]rules.LinkRule{stereoRule()})
	env := newTestEnv(t, Options{Rules: store})

	resp := env.get(t, "/api/v1/rules")
	body := decodeBody[RulesResponse](t, resp)
	if body.Count != 1 || body.Rules[0].Name != "stereo" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestPutRulesReplacesStore(t *testing.T) {
	store := rules.NewStore([]rules.LinkRule{stereoRule()})
	env := newTestEnv(t, Options{Rules: store})

	body := `[
		{
			"name": "mono",
			"source": {"node.name": "^mic"},
			"destination": {"node.name": "^recorder"},
			"type": "link",
			"relink_every": 30
		}
	]`
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/v1/rules", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/v1/rules: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	ack := decodeBody[RulesUpdateResponse](t, resp)
	if ack.Count != 1 {
		t.Errorf("unexpected ack: %+v", ack)
	}

	list := env.store.Rules()
	if len(list) != 1 || list[0].Name != "mono" || list[0].RelinkEvery != 30 {
		t.Errorf("store not replaced: %+v", list)
	}
}

func TestPutRulesRejectsInvalid(t *testing.T) {
	store := rules.NewStore([]rules.LinkRule{stereoRule()})
	env := newTestEnv(t, Options{Rules: store})

	body := `[{"name": "bad", "source": {"node.name": "["}, "type": "link"}]`
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/v1/rules", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/v1/rules: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	// Original list untouched.
	if list := env.store.Rules(); len(list) != 1 || list[0].Name != "stereo" {
		t.Errorf("store modified by invalid PUT: %+v", list)
	}
}

func TestNodesAndPorts(t *testing.T) {
	env := newTestEnv(t, Options{})

	nodes := decodeBody[NodesResponse](t, env.get(t, "/api/v1/nodes"))
	if nodes.Count != 2 {
		t.Errorf("got %d nodes, want 2", nodes.Count)
	}

	ports := decodeBody[PortsResponse](t, env.get(t, "/api/v1/ports"))
	if ports.Count != 4 {
		t.Errorf("got %d ports, want 4", ports.Count)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, path := range []string{
		"/api/v1/links/apply",
		"/api/v1/links/batch",
		"/api/v1/links/apply-defaults",
	} {
		resp := env.get(t, path)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: status = %d, want 405", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := env.post(t, "/api/v1/nodes", "{}")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/v1/nodes: status = %d, want 405", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, path := range []string{"/health", "/ready", "/live"} {
		resp := env.get(t, path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.get(t, "/metrics")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestGraphQLEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.post(t, "/graphql", `{"query": "{ nodes { name } }"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Nodes []struct {
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	resp.Body.Close()
	if len(body.Data.Nodes) != 2 {
		t.Errorf("unexpected nodes: %+v", body.Data.Nodes)
	}
}
