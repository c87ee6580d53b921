/*
Package storage defines the storage contract implemented by every wallet
backend (relational, local encrypted file, remote/virtual) and the
process-wide registry used to select among them.

# Architecture

	┌──────────────────── STORAGE CONTRACT ────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Backend (per name)              │          │
	│  │  - CreateStorage / OpenStorage / DeleteStorage│          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ registered via Register()            │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │                 Registry                     │          │
	│  │  - name -> Backend, process-wide, init()-time │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ OpenStorage(ctx, backend, id, ...)    │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │                  Store                       │          │
	│  │  - Add/Update/Get/AddTags/UpdateTags/...     │          │
	│  │  - GetAll/Search -> Iterator                 │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │                 Iterator                      │          │
	│  │  - Next/Record/Err/TotalCount/Close          │          │
	│  │  - owned by one goroutine at a time          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

This package holds no backend-specific code. See pkg/pgwallet (relational,
backed by PostgreSQL via pgx), pkg/filewallet (local, backed by a
bbolt file with AES-256-GCM at-rest encryption) and pkg/remotewallet
(HTTP JSON API) for the implementations; each registers itself with this
package from an init() function.

# Error taxonomy

Every operation returns either nil or an *Error carrying a Kind from the
fixed taxonomy: AlreadyExists, NotFound, ItemNotFound, ItemAlreadyExists,
InvalidStructure, AccessFailed, IOError, InvalidState. Backends translate
their native driver errors into this taxonomy at the boundary; callers
that need to branch on the failure mode use storage.KindOf(err) or
errors.Is(err, storage.ErrKind(storage.ItemNotFound)) rather than
string-matching error text.

# Concurrency

A Store is safe for concurrent use by multiple goroutines; each method
executes atomically with respect to its backend. An Iterator is not: it
may hold a pooled connection or live cursor, and must be owned by one
goroutine for its lifetime. Cancellation and timeouts are carried
end-to-end via context.Context, consistent with how the rest of this
module's ambient stack (logging, metrics, health checks) is threaded.

# Design patterns

Capability over inheritance:
  - Backends share no base type. Each independently implements Backend
    and returns a Store; the registry is the only indirection, so adding
    a fourth backend never touches this package.

Total or structured errors:
  - No stringly-typed errors escape a backend. Every failure path either
    returns a *storage.Error with an explicit Kind or wraps the
    underlying driver error via storage.Wrap, preserving it for
    errors.Unwrap while still exposing a stable Kind to callers.

Idempotent Close:
  - Every Store and Iterator tolerates repeated Close calls, mirroring
    bbolt's own *DB.Close semantics.
*/
package storage
