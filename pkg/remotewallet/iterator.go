package remotewallet

import (
	"context"

	"github.com/cuemby/walletstore/pkg/record"
)

// listIterator implements storage.Iterator over a slice of records
// materialized by one keyval list round-trip. The remote API offers no
// server-side cursor, so — like pkg/filewallet's sliceIterator, and
// unlike pkg/pgwallet's connection-bound streaming iterator — the whole
// match set is fetched and filtered up front.
type listIterator struct {
	records []record.Record
	total   int
	haveTotal bool

	pos     int
	current *record.Record
}

func newListIterator(records []record.Record, total int, haveTotal bool) *listIterator {
	return &listIterator{records: records, total: total, haveTotal: haveTotal, pos: -1}
}

func (it *listIterator) Next(ctx context.Context) bool {
	it.pos++
	if it.pos >= len(it.records) {
		return false
	}
	it.current = &it.records[it.pos]
	return true
}

func (it *listIterator) Record() *record.Record {
	return it.current
}

func (it *listIterator) Err() error {
	return nil
}

func (it *listIterator) TotalCount() (int, bool) {
	return it.total, it.haveTotal
}

func (it *listIterator) Close() error {
	return nil
}
