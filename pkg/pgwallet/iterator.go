package pgwallet

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/walletstore/pkg/metrics"
	"github.com/cuemby/walletstore/pkg/record"
)

// rowIterator implements storage.Iterator over a single acquired pool
// connection. Binding the connection for the iterator's whole lifetime,
// rather than borrowing per row, is what lets TagRetriever's two queries
// hit pgx's per-connection prepared-statement cache (spec §4.4).
type rowIterator struct {
	conn    *pgxpool.Conn
	rows    pgx.Rows
	tags    *TagRetriever
	options record.SearchOptions

	total     int
	haveTotal bool

	current *record.Record
	err     error
	closed  bool
}

func (it *rowIterator) Next(ctx context.Context) bool {
	if it.closed || it.rows == nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}

	var itemID int64
	var name, value, key, typ []byte
	if err := it.rows.Scan(&itemID, &name, &value, &key, &typ); err != nil {
		it.err = err
		return false
	}

	rec := &record.Record{ID: name}
	if it.options.RetrieveType {
		rec.Type = typ
	}
	if it.options.RetrieveValue {
		rec.Value = &record.EncryptedValue{Key: key, Data: value}
	}
	if it.options.RetrieveTags {
		tags, err := it.tags.Fetch(ctx, itemID)
		if err != nil {
			it.err = err
			return false
		}
		rec.Tags = tags
	}
	it.current = rec
	return true
}

func (it *rowIterator) Record() *record.Record {
	return it.current
}

func (it *rowIterator) Err() error {
	return it.err
}

func (it *rowIterator) TotalCount() (int, bool) {
	return it.total, it.haveTotal
}

func (it *rowIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.rows != nil {
		it.rows.Close()
	}
	if it.conn != nil {
		it.conn.Release()
		metrics.PoolConnectionsInUse.Dec()
	}
	return nil
}
