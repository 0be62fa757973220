package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolink/audiolinkd/pkg/rules"
)

// End-to-end reconciliation flow: the scheduler drives the engine against a
// live-ish topology and converges back after external changes.
func TestReconciliationHealsRemovedLinks(t *testing.T) {
	provider := stereoProvider()
	sched, tracker := newTestScheduler(provider, testRule("periodic", true, 1))

	sched.ApplyStartupRules()

	snap, err := provider.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Links, 2, "startup pass should connect both channels")

	// Someone removes one link out from under the daemon.
	removed := snap.Links[0]
	require.NoError(t, provider.RemoveLink(removed.ID))

	snap, err = provider.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Links, 1)

	// Next due pass recreates exactly the missing link.
	sched.mu.Lock()
	sched.lastCheck[0] = time.Now().Add(-2 * time.Second)
	sched.mu.Unlock()
	sched.checkRules()

	snap, err = provider.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Links, 2, "reconciliation should restore the removed link")

	st, ok := tracker.Get(0)
	require.True(t, ok)
	assert.Equal(t, uint64(2), st.TotalRuns)
	assert.Equal(t, 2, st.LinksCreated)
	assert.Zero(t, st.LinksFailed)
	assert.Empty(t, st.LastError)
}

func TestRuleReplacementStartsOver(t *testing.T) {
	provider := stereoProvider()
	sched, tracker := newTestScheduler(provider, testRule("old", true, 0))

	sched.ApplyStartupRules()
	st, ok := tracker.Get(0)
	require.True(t, ok)
	require.Equal(t, uint64(1), st.TotalRuns)

	// Wholesale replacement: indexes re-map, bookkeeping starts fresh.
	sched.store.Replace([]rules.LinkRule{testRule("new", true, 0)})
	sched.ResetSchedule()

	_, ok = tracker.Get(0)
	assert.False(t, ok, "tracker should be empty after replacement")

	sched.checkRules()

	st, ok = tracker.Get(0)
	require.True(t, ok)
	assert.Equal(t, uint64(1), st.TotalRuns)
	// Links already exist, so the run succeeds without new creates.
	assert.Equal(t, 2, st.LinksCreated)
	assert.Equal(t, 2, provider.creates)
}

func TestUnlinkRuleDisconnects(t *testing.T) {
	provider := stereoProvider()
	linkRule := testRule("connect", true, 0)
	sched, _ := newTestScheduler(provider, linkRule)
	sched.ApplyStartupRules()

	snap, err := provider.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Links, 2)

	unlinkRule := testRule("disconnect", true, 0)
	unlinkRule.LinkType = rules.Unlink
	sched2, tracker2 := newTestScheduler(provider, unlinkRule)
	sched2.ApplyStartupRules()

	snap, err = provider.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.Links, "unlink rule should remove both links")

	st, ok := tracker2.Get(0)
	require.True(t, ok)
	assert.Equal(t, 2, st.LinksCreated, "successful removals count as successes")
}
