// Package scheduler drives periodic rule reconciliation. Each rule keeps its
// own re-check interval; the scheduler ticks once a second and decides per
// rule whether it is due.
package scheduler

import (
	"strings"
	"sync"
	"time"

	"github.com/audiolink/audiolinkd/pkg/linker"
	"github.com/audiolink/audiolinkd/pkg/logging"
	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/status"
)

// DefaultTick is the scheduler's wakeup interval. Rule intervals are
// quantized to it.
const DefaultTick = time.Second

// RunResult summarizes one completed reconciliation of one rule.
type RunResult struct {
	Rule     string
	Index    int
	Outcomes []linker.Outcome
	Created  int
	Failed   int
	Duration time.Duration
	Err      error
}

// Scheduler owns the reconciliation loop.
type Scheduler struct {
	engine  *linker.Engine
	store   *rules.Store
	tracker *status.Tracker
	logger  logging.Logger
	tick    time.Duration

	// OnResult, when set before Start, is invoked after every completed
	// rule run. Used for event fan-out and run history.
	OnResult func(RunResult)

	mu        sync.Mutex
	lastCheck map[int]time.Time
	lastPass  time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a scheduler. A zero tick means DefaultTick.
func New(engine *linker.Engine, store *rules.Store, tracker *status.Tracker, logger logging.Logger, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Scheduler{
		engine:    engine,
		store:     store,
		tracker:   tracker,
		logger:    logger,
		tick:      tick,
		lastCheck: make(map[int]time.Time),
		stopCh:    make(chan struct{}),
	}
}

// Start applies the startup rules, then launches the periodic loop.
func (s *Scheduler) Start() {
	s.ApplyStartupRules()

	s.wg.Add(1)
	go s.run()
	s.logger.Info("Link scheduler started", logging.Duration("tick", s.tick))
}

// Stop terminates the loop and waits for the in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("Link scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkRules()
		}
	}
}

// ApplyStartupRules runs every rule marked link_at_startup once, before the
// periodic loop takes over. Runs fold into the same status bookkeeping as
// scheduled ones.
func (s *Scheduler) ApplyStartupRules() {
	now := time.Now()
	for i, rule := range s.store.Rules() {
		if !rule.LinkAtStartup {
			continue
		}
		s.runRule(i, rule)
		s.mu.Lock()
		s.lastCheck[i] = now
		s.mu.Unlock()
	}
}

// checkRules performs one scheduler pass. Per rule:
//   - never checked: apply if link_at_startup, record the check either way
//   - relink_every == 0 and already checked: done for good
//   - otherwise: apply when the interval has elapsed
func (s *Scheduler) checkRules() {
	now := time.Now()
	for i, rule := range s.store.Rules() {
		s.mu.Lock()
		last, seen := s.lastCheck[i]
		s.mu.Unlock()

		apply := false
		switch {
		case !seen:
			apply = rule.LinkAtStartup
		case rule.RelinkEvery == 0:
			continue
		case now.Sub(last) >= time.Duration(rule.RelinkEvery)*time.Second:
			apply = true
		default:
			continue
		}

		if apply {
			s.runRule(i, rule)
		}
		s.mu.Lock()
		s.lastCheck[i] = now
		s.mu.Unlock()
	}
	s.mu.Lock()
	s.lastPass = now
	s.mu.Unlock()
}

// LastPass returns when the scheduler last completed a pass over the rules.
// Zero until the first tick fires.
func (s *Scheduler) LastPass() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPass
}

// ScheduledRules counts the rules with a periodic re-check interval.
func (s *Scheduler) ScheduledRules() int {
	var n int
	for _, rule := range s.store.Rules() {
		if rule.RelinkEvery > 0 {
			n++
		}
	}
	return n
}

// RunNow applies the rule at index immediately, bypassing its schedule. The
// run still updates status and the last-check time.
func (s *Scheduler) RunNow(index int) (RunResult, bool) {
	all := s.store.Rules()
	if index < 0 || index >= len(all) {
		return RunResult{}, false
	}
	res := s.runRule(index, all[index])

	s.mu.Lock()
	s.lastCheck[index] = time.Now()
	s.mu.Unlock()
	return res, true
}

// ResetSchedule forgets all last-check times. Called when the rule list is
// replaced, together with a tracker reset, because rule indexes shift.
func (s *Scheduler) ResetSchedule() {
	s.mu.Lock()
	s.lastCheck = make(map[int]time.Time)
	s.mu.Unlock()
	s.tracker.Reset()
}

func (s *Scheduler) runRule(index int, rule rules.LinkRule) RunResult {
	start := time.Now()
	outcomes, err := s.engine.ApplyRule(rule)
	if err != nil {
		logging.LogAt(s.logger, rule.ErrorLevel.Level(), "Rule failed",
			logging.Rule(rule.Name), logging.RuleIndex(index), logging.Error(err))
		s.tracker.Update(index, 0, 0, err.Error())
		res := RunResult{Rule: rule.Name, Index: index, Duration: time.Since(start), Err: err}
		s.notify(res)
		return res
	}

	var created, failed int
	var errMsgs []string
	for _, o := range outcomes {
		if o.Success {
			created++
			logging.LogAt(s.logger, rule.InfoLevel.Level(), o.Message,
				logging.Rule(rule.Name))
		} else {
			failed++
			errMsgs = append(errMsgs, o.Message)
			logging.LogAt(s.logger, rule.ErrorLevel.Level(), o.Message,
				logging.Rule(rule.Name))
		}
	}

	s.tracker.Update(index, created, failed, strings.Join(errMsgs, "; "))

	res := RunResult{
		Rule:     rule.Name,
		Index:    index,
		Outcomes: outcomes,
		Created:  created,
		Failed:   failed,
		Duration: time.Since(start),
	}
	s.notify(res)
	return res
}

func (s *Scheduler) notify(res RunResult) {
	if s.OnResult != nil {
		s.OnResult(res)
	}
}
