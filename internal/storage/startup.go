package storage

import (
	"context"
	"log/slog"
	"time"
)

// StartupState is the readiness of the persistence layer after bootstrap.
type StartupState string

const (
	StartupReady    StartupState = "ready"
	StartupDegraded StartupState = "degraded"
)

// StartupStatus records how bootstrap went so the health endpoint can expose
// it instead of the failure only living in the logs.
type StartupStatus struct {
	State     StartupState `json:"state"`
	Engine    Engine       `json:"engine"`
	Reason    string       `json:"reason,omitempty"`
	Attempts  int          `json:"attempts"`
	CheckedAt time.Time    `json:"checked_at"`
}

// Ready reports whether bootstrap completed without problems.
func (s StartupStatus) Ready() bool {
	return s.State == StartupReady
}

// Bootstrap waits for the engine and creates the schema. Neither step is
// fatal: failures are logged and reported as a degraded status, leaving the
// first real query to surface anything still unresolved.
func Bootstrap(ctx context.Context, p *Provider, policy RetryPolicy, logger *slog.Logger) StartupStatus {
	if logger == nil {
		logger = slog.Default()
	}
	status := StartupStatus{State: StartupReady, Engine: p.Engine()}

	wait := WaitUntilReady(ctx, p.Engine(), p.Ping, policy, logger)
	status.Attempts = wait.Attempts
	if !wait.Ready {
		status.State = StartupDegraded
		status.Reason = "database unreachable"
		if wait.LastErr != nil {
			status.Reason += ": " + wait.LastErr.Error()
		}
	}

	if err := EnsureSchema(ctx, p); err != nil {
		logger.ErrorContext(ctx, "Schema initialization failed; continuing without blocking startup",
			"engine", p.Engine(),
			"error", err)
		if status.State == StartupReady {
			status.State = StartupDegraded
			status.Reason = err.Error()
		}
	} else {
		logger.InfoContext(ctx, "Schema ready", "engine", p.Engine())
	}

	status.CheckedAt = time.Now().UTC()
	return status
}
