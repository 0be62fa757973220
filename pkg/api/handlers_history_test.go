package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/audiolink/audiolinkd/pkg/history"
)

func TestHistoryEndpoint(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, rule := range []string{"stereo", "mono", "stereo"} {
		if _, err := store.RecordRun(ctx, history.RunRecord{
			Rule:      rule,
			StartedAt: time.Now(),
			Created:   2,
		}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	env := newTestEnv(t, Options{History: store})

	resp := env.get(t, "/api/v1/history")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[HistoryResponse](t, resp)
	if body.Count != 3 {
		t.Fatalf("got %d runs, want 3", body.Count)
	}
	// Newest first.
	if body.Runs[0].Rule != "stereo" {
		t.Errorf("unexpected first run: %+v", body.Runs[0])
	}

	filtered := decodeBody[HistoryResponse](t, env.get(t, "/api/v1/history?rule=mono"))
	if filtered.Count != 1 || filtered.Runs[0].Rule != "mono" {
		t.Errorf("rule filter broken: %+v", filtered)
	}

	limited := decodeBody[HistoryResponse](t, env.get(t, "/api/v1/history?limit=2"))
	if limited.Count != 2 {
		t.Errorf("limit ignored: %+v", limited)
	}
}

func TestHistoryUnavailable(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.get(t, "/api/v1/history")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := newTestEnv(t, Options{History: store})

	resp := env.get(t, "/api/v1/history?limit=banana")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
