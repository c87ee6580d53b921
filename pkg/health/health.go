package health

import (
	"context"
	"time"
)

// CheckType identifies how a Checker reaches the thing it probes.
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
)

// Result is the outcome of one reachability probe against a backend
// server (the Postgres host for pkg/pgwallet, the keyval endpoint for
// pkg/remotewallet).
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is a single reachability probe. The relational and remote
// backends run one in CreateStorage before touching the backend (their
// OpenStorage runs none), so a misconfigured host or a
// down server surfaces as storage.AccessFailed instead of a raw dial
// or HTTP error (spec §4.4/§4.5).
type Checker interface {
	// Check performs the probe and returns the result.
	Check(ctx context.Context) Result

	// Type returns the kind of probe.
	Type() CheckType
}
