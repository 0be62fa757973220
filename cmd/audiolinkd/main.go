package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/audiolink/audiolinkd/pkg/api"
	"github.com/audiolink/audiolinkd/pkg/config"
	"github.com/audiolink/audiolinkd/pkg/events"
	"github.com/audiolink/audiolinkd/pkg/health"
	"github.com/audiolink/audiolinkd/pkg/history"
	"github.com/audiolink/audiolinkd/pkg/linker"
	"github.com/audiolink/audiolinkd/pkg/logging"
	"github.com/audiolink/audiolinkd/pkg/metrics"
	"github.com/audiolink/audiolinkd/pkg/pwcli"
	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/scheduler"
	"github.com/audiolink/audiolinkd/pkg/server"
	"github.com/audiolink/audiolinkd/pkg/status"
	"github.com/audiolink/audiolinkd/pkg/topology"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides configuration)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("audiolinkd %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logging.SetDefaultLogger(logger)

	logger.Info("audiolinkd starting",
		logging.String("version", version),
		logging.Int("port", cfg.Port),
		logging.Duration("tick", cfg.TickInterval.Std()))

	// Topology access: pw-cli/pw-link behind the provider contract, with a
	// short-lived snapshot cache for the read endpoints. The reconciliation
	// engine bypasses the cache and always queries fresh.
	provider := pwcli.NewProvider(cfg.CommandTimeout.Std())
	cache := topology.NewSnapshotCache(provider, cfg.SnapshotTTL.Std())

	// Rule files: explicit list, or system config then user config. The
	// built-in rules only apply when the files yield nothing.
	rulePaths := cfg.RuleFiles
	if len(rulePaths) == 0 {
		rulePaths = []string{rules.SystemConfigPath, rules.UserConfigPath()}
	}
	ruleList := rules.LoadAll(logger, rulePaths...)
	if len(ruleList) == 0 {
		logger.Info("no rules configured, using built-in defaults")
		ruleList = rules.DefaultRules()
	}
	store := rules.NewStore(ruleList)
	logger.Info("rules loaded", logging.Count(len(ruleList)))

	tracker := status.NewTracker()
	engine := linker.NewEngine(provider)

	registry := metrics.DefaultRegistry()
	registry.ActiveRules.Set(float64(len(ruleList)))

	cache.Observer = func(hit bool, queryTime time.Duration, err error) {
		registry.RecordCacheLookup(hit)
		if hit {
			return
		}
		queryStatus := "success"
		if err != nil {
			queryStatus = "error"
		}
		registry.RecordSnapshotQuery(queryStatus, queryTime)
	}

	bus := events.NewBus()
	defer bus.Shutdown()

	var publisher *events.Publisher
	if cfg.EventsAddr != "" {
		publisher, err = events.NewPublisher(bus, cfg.EventsAddr, logger)
		if err != nil {
			logger.Error("failed to start event publisher", logging.Error(err))
			os.Exit(1)
		}
		defer publisher.Close()
		logger.Info("event publisher listening", logging.String("addr", cfg.EventsAddr))
	}

	var runHistory *history.Store
	if cfg.HistoryPath != "" {
		runHistory, err = history.Open(cfg.HistoryPath)
		if err != nil {
			logger.Error("failed to open run history", logging.Error(err))
			os.Exit(1)
		}
		defer runHistory.Close()
	}

	sched := scheduler.New(engine, store, tracker, logger, cfg.TickInterval.Std())
	sched.OnResult = func(res scheduler.RunResult) {
		runStatus := "success"
		if res.Err != nil || res.Failed > 0 {
			runStatus = "failure"
		}
		registry.RecordRuleRun(res.Rule, runStatus, res.Duration, res.Created, res.Failed)

		var runErr string
		if res.Err != nil {
			runErr = res.Err.Error()
		}
		bus.Publish(events.NewRuleRunEvent(res.Rule, res.Index, res.Outcomes, res.Created, res.Failed, res.Err))

		if runHistory != nil {
			if _, err := runHistory.RecordRun(context.Background(), history.RunRecord{
				Rule:      res.Rule,
				RuleIndex: res.Index,
				StartedAt: time.Now().Add(-res.Duration),
				Created:   res.Created,
				Failed:    res.Failed,
				Error:     runErr,
				Outcomes:  res.Outcomes,
			}); err != nil {
				logger.Warn("failed to record run history", logging.Error(err))
			}
		}
	}

	checker := health.NewHealthChecker()
	checker.RegisterReadinessCheck("audio_server", health.AudioServerCheck(func() (int, int, int, error) {
		snap, err := cache.Get()
		if err != nil {
			return 0, 0, 0, err
		}
		return len(snap.Nodes), len(snap.Ports), len(snap.Links), nil
	}))
	checker.RegisterCheck("rules", health.RulesCheck(func() (int, int) {
		total := store.Len()
		var failing int
		for _, st := range tracker.All() {
			if st.LastError != "" {
				failing++
			}
		}
		return total, failing
	}))
	checker.RegisterLivenessCheck("scheduler", health.SchedulerCheck(func() (int, time.Time) {
		return sched.ScheduledRules(), sched.LastPass()
	}, cfg.TickInterval.Std()))

	var watcher *rules.Watcher
	if cfg.WatchRules {
		watcher, err = rules.NewWatcher(store, logger, rulePaths...)
		if err != nil {
			logger.Warn("rule file watching unavailable", logging.Error(err))
		} else {
			// Unlike SIGHUP, a file-change reload keeps the schedule: rules
			// already applied once stay applied, new indexes run on the next
			// due tick.
			watcher.OnReload = func(list []rules.LinkRule) {
				registry.ActiveRules.Set(float64(len(list)))
				bus.Publish(events.NewRulesReloadEvent(len(list)))
			}
			watcher.Start()
			defer watcher.Stop()
		}
	}

	apiServer := api.NewServer(api.Options{
		Logger:    logger,
		Provider:  provider,
		Cache:     cache,
		Rules:     store,
		Tracker:   tracker,
		Engine:    engine,
		Scheduler: sched,
		Health:    checker,
		Metrics:   registry,
		Bus:       bus,
		History:   runHistory,
		Auth: api.AuthConfig{
			Enabled:        cfg.Auth.Enabled,
			JWTSecret:      cfg.Auth.JWTSecret,
			AdminTokenHash: cfg.Auth.AdminTokenHash,
		},
		Version: version,
		Port:    cfg.Port,
	})

	gs := server.NewGracefulServer(fmt.Sprintf(":%d", cfg.Port), apiServer.Handler(), logger)
	gs.SetReloadFunc(func() error {
		list := rules.LoadAll(logger, rulePaths...)
		if len(list) == 0 {
			list = rules.DefaultRules()
		}
		store.Replace(list)
		sched.ResetSchedule()
		registry.ActiveRules.Set(float64(len(list)))
		bus.Publish(events.NewRulesReloadEvent(len(list)))
		logger.Info("rules reloaded", logging.Count(len(list)))
		return nil
	})

	sched.Start()
	defer sched.Stop()

	go maintenanceLoop(gs.ShutdownChannel(), registry, cache, runHistory, cfg.HistoryRetention.Std(), logger)

	if err := gs.Start(); err != nil {
		logger.Error("server failed", logging.Error(err))
		os.Exit(1)
	}
}

// maintenanceLoop keeps the system gauges fresh and prunes old history.
func maintenanceLoop(stop <-chan struct{}, registry *metrics.Registry, cache *topology.SnapshotCache, runHistory *history.Store, retention time.Duration, logger logging.Logger) {
	startTime := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	pruneTicker := time.NewTicker(time.Hour)
	defer pruneTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			registry.UpdateSystemMetrics(startTime)
			if snap, err := cache.Get(); err == nil {
				registry.UpdateTopology(len(snap.Nodes), len(snap.Ports), len(snap.Links))
			}
		case <-pruneTicker.C:
			if runHistory == nil || retention <= 0 {
				continue
			}
			pruned, err := runHistory.Prune(context.Background(), retention)
			if err != nil {
				logger.Warn("history prune failed", logging.Error(err))
			} else if pruned > 0 {
				logger.Debug("pruned run history", logging.Int("records", int(pruned)))
			}
		}
	}
}
