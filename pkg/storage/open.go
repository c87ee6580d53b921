package storage

import "context"

// CreateStorage looks up backend by name and creates fresh wallet state
// under id. This is the single process-wide entry point callers use
// instead of importing a concrete backend package directly (spec §4.6).
func CreateStorage(ctx context.Context, backend, id string, config, credentials, metadata []byte) error {
	b, err := lookup(backend)
	if err != nil {
		return err
	}
	return b.CreateStorage(ctx, id, config, credentials, metadata)
}

// OpenStorage looks up backend by name and opens the wallet identified
// by id, returning a handle implementing Store.
func OpenStorage(ctx context.Context, backend, id string, config, credentials []byte) (Store, error) {
	b, err := lookup(backend)
	if err != nil {
		return nil, err
	}
	return b.OpenStorage(ctx, id, config, credentials)
}

// DeleteStorage looks up backend by name and drops the wallet identified
// by id.
func DeleteStorage(ctx context.Context, backend, id string, config, credentials []byte) error {
	b, err := lookup(backend)
	if err != nil {
		return err
	}
	return b.DeleteStorage(ctx, id, config, credentials)
}
