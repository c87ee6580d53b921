package filewallet

import (
	"context"

	"github.com/cuemby/walletstore/pkg/record"
)

// sliceIterator implements storage.Iterator over a slice of candidates
// materialized by Wallet.scan. Unlike pkg/pgwallet's streaming iterator,
// the whole match set is gathered up front: this backend targets
// single-wallet, single-process use, not the relational backend's
// connection-bound streaming requirement (spec §4.7).
type sliceIterator struct {
	candidates []candidate
	options    record.SearchOptions

	pos     int
	current *record.Record

	total     int
	haveTotal bool
}

func newSliceIterator(candidates []candidate, options record.SearchOptions) *sliceIterator {
	return &sliceIterator{candidates: candidates, options: options, pos: -1}
}

func (it *sliceIterator) Next(ctx context.Context) bool {
	it.pos++
	if it.pos >= len(it.candidates) {
		return false
	}
	c := it.candidates[it.pos]
	rec := &record.Record{ID: c.id}
	if it.options.RetrieveType {
		rec.Type = c.typ
	}
	if it.options.RetrieveValue {
		value := c.value
		rec.Value = &value
	}
	if it.options.RetrieveTags {
		rec.Tags = c.tags
	}
	it.current = rec
	return true
}

func (it *sliceIterator) Record() *record.Record {
	return it.current
}

func (it *sliceIterator) Err() error {
	return nil
}

func (it *sliceIterator) TotalCount() (int, bool) {
	return it.total, it.haveTotal
}

func (it *sliceIterator) Close() error {
	return nil
}
