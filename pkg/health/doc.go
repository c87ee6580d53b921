/*
Package health provides reusable reachability checks used by the wallet
backends that talk to an external service: the remote/virtual HTTP
backend (server health before create_storage, spec §4.5) and the
relational backend (TCP reachability of the PostgreSQL host before
create_storage's admin connection).

# Architecture

	┌──────────────────────────────────────────────────┐
	│                 Checker interface                  │
	│  • Check(ctx) Result                               │
	│  • Type() CheckType                                │
	└────────┬───────────────────────┬───────────────────┘
	         ▼                       ▼
	    ┌─────────┐            ┌──────────┐
	    │HTTPChecker│           │TCPChecker│
	    └─────────┘            └──────────┘
	         │                       │
	    GET {base}/schema/       dial host:port

# Usage

	checker := health.NewHTTPChecker(cfg.Endpoint + "/schema/").
		WithTimeout(5 * time.Second)
	result := checker.Check(ctx)
	if !result.Healthy {
		return storage.Wrap(storage.AccessFailed, "server unreachable", errors.New(result.Message))
	}

Each Check is a single probe; the package keeps no state between
probes and does not retry a failed one.
*/
package health
