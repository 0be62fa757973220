package health

import "time"

// Common health check functions

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// AudioServerCheck creates a health check for audio server connectivity.
// The probe runs a topology query and reports the object counts it saw.
func AudioServerCheck(probe func() (nodes, ports, links int, err error)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "audio_server",
			Details: make(map[string]any),
		}

		nodes, ports, links, err := probe()
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		check.Details["nodes"] = nodes
		check.Details["ports"] = ports
		check.Details["links"] = links

		if nodes == 0 {
			check.Status = StatusDegraded
			check.Message = "Audio server reachable but reports no nodes"
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}

		return check
	}
}

// RulesCheck creates a health check over the loaded rule set and its last
// reconciliation results.
func RulesCheck(getState func() (total, failing int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "rules",
			Details: make(map[string]any),
		}

		total, failing := getState()

		check.Details["total_rules"] = total
		check.Details["failing_rules"] = failing

		if total == 0 {
			check.Status = StatusHealthy
			check.Message = "No rules configured"
		} else if failing == total {
			check.Status = StatusUnhealthy
			check.Message = "All rules failing"
		} else if failing > 0 {
			check.Status = StatusDegraded
			check.Message = "Some rules failing"
		} else {
			check.Status = StatusHealthy
			check.Message = "All rules healthy"
		}

		return check
	}
}

// SchedulerCheck creates a liveness check for the reconciliation loop. The
// loop is considered stalled when no rule has been checked for several
// multiples of the tick interval despite scheduled rules existing.
func SchedulerCheck(getState func() (scheduledRules int, lastPass time.Time), tick time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "scheduler",
			Details: make(map[string]any),
		}

		scheduledRules, lastPass := getState()

		check.Details["scheduled_rules"] = scheduledRules
		if !lastPass.IsZero() {
			check.Details["last_pass"] = lastPass
		}

		switch {
		case scheduledRules == 0:
			check.Status = StatusHealthy
			check.Message = "No scheduled rules"
		case lastPass.IsZero():
			check.Status = StatusDegraded
			check.Message = "Scheduler has not completed a pass yet"
		case time.Since(lastPass) > 10*tick:
			check.Status = StatusUnhealthy
			check.Message = "Scheduler stalled"
		default:
			check.Status = StatusHealthy
			check.Message = "Scheduler running"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		// Consider degraded if allocated memory > 90% of system memory
		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
