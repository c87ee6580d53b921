// Package storage defines the storage contract shared by every wallet
// backend (relational, local file, remote) and the registry that selects
// among them. It carries no backend-specific code; see pkg/pgwallet,
// pkg/filewallet and pkg/remotewallet for the implementations.
package storage

import (
	"context"

	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/tagquery"
)

// Backend is the capability every wallet implementation registers under a
// name (spec §4.6). It is the only place backend selection happens; the
// Store contract below never leaks which backend produced it.
type Backend interface {
	// CreateStorage creates fresh wallet state identified by id. config and
	// credentials are backend-specific JSON payloads; metadata seeds the
	// wallet's metadata slot. Fails with AlreadyExists if id is taken.
	CreateStorage(ctx context.Context, id string, config, credentials, metadata []byte) error
	// OpenStorage opens an existing wallet. Fails with NotFound if absent.
	OpenStorage(ctx context.Context, id string, config, credentials []byte) (Store, error)
	// DeleteStorage drops wallet state. Fails with NotFound if absent.
	DeleteStorage(ctx context.Context, id string, config, credentials []byte) error
}

// Store is the per-wallet handle every backend returns from OpenStorage.
// Operations are safe for concurrent use by multiple callers; each call
// executes atomically with respect to its backend (spec §5). Iterators
// returned by GetAll/Search are not safe for concurrent use and must be
// owned by a single goroutine at a time.
type Store interface {
	// Add creates a new record. Fails with ItemAlreadyExists if (type, id)
	// is already present.
	Add(ctx context.Context, typ, id []byte, value record.EncryptedValue, tags []record.Tag) error
	// Update replaces the encrypted value of an existing record. Fails
	// with ItemNotFound if absent.
	Update(ctx context.Context, typ, id []byte, value record.EncryptedValue) error
	// Get fetches a record, honoring which parts options requests. Fails
	// with ItemNotFound if absent.
	Get(ctx context.Context, typ, id []byte, options record.FetchOptions) (*record.Record, error)

	// AddTags merges tags into the record's tag set, upserting per name.
	// Fails with ItemNotFound if the record is absent.
	AddTags(ctx context.Context, typ, id []byte, tags []record.Tag) error
	// UpdateTags replaces the record's entire tag set. Fails with
	// ItemNotFound if the record is absent.
	UpdateTags(ctx context.Context, typ, id []byte, tags []record.Tag) error
	// DeleteTags removes tags by name. Fails with ItemNotFound if the
	// record is absent; unknown names are silently ignored.
	DeleteTags(ctx context.Context, typ, id []byte, names []record.TagName) error

	// Delete removes a record and all its tags. Fails with ItemNotFound
	// if absent.
	Delete(ctx context.Context, typ, id []byte) error

	// GetStorageMetadata returns the wallet's metadata slot.
	GetStorageMetadata(ctx context.Context) ([]byte, error)
	// SetStorageMetadata atomically replaces the metadata slot.
	SetStorageMetadata(ctx context.Context, value []byte) error

	// GetAll returns an iterator over every record in the wallet, with
	// full tags, regardless of type.
	GetAll(ctx context.Context, options record.FetchOptions) (Iterator, error)
	// Search returns an iterator over records of typ whose tags satisfy
	// query. A nil query matches every record of typ.
	Search(ctx context.Context, typ []byte, query tagquery.Node, options record.SearchOptions) (Iterator, error)

	// Close releases resources held by the handle. Idempotent.
	Close() error
}

// Iterator streams the rows produced by GetAll or Search. It is not safe
// for concurrent use; a live iterator may hold a connection or cursor
// that blocks concurrent mutators on the same wallet (spec §5).
type Iterator interface {
	// Next advances to the next record, returning false when the
	// iterator is drained. Subsequent calls after a false return also
	// return false.
	Next(ctx context.Context) bool
	// Record returns the record Next most recently advanced to. Its
	// fields are populated according to the options the iterator was
	// created with.
	Record() *record.Record
	// Err returns the first error encountered, if any; callers should
	// check it after Next returns false.
	Err() error
	// TotalCount returns the total matching row count and true, if the
	// iterator was created with RetrieveTotalCount; otherwise false.
	TotalCount() (int, bool)
	// Close releases the iterator's resources. Idempotent.
	Close() error
}
