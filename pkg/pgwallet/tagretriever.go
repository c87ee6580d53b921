package pgwallet

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cuemby/walletstore/pkg/record"
)

// querier is the subset of *pgxpool.Pool and *pgxpool.Conn this package
// needs. A TagRetriever is bound to whichever one backs a given call: the
// pool for one-shot operations, a single acquired connection for the
// lifetime of an iterator (spec §4.4 "Prepared-statement cache").
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TagRetriever fetches the tags of one item. pgx caches prepared
// statements per connection automatically keyed by SQL text, so reusing
// the same querier across calls (a pooled connection bound to one
// iterator, per spec §4.4) is what makes the cache effective; this type
// adds no cache of its own beyond always issuing the same two queries.
type TagRetriever struct {
	q querier
}

func newTagRetriever(q querier) *TagRetriever {
	return &TagRetriever{q: q}
}

const fetchEncryptedTagsSQL = `SELECT name, value FROM tags_encrypted WHERE item_id = $1`
const fetchPlaintextTagsSQL = `SELECT name, value FROM tags_plaintext WHERE item_id = $1`

// Fetch returns every tag attached to itemID, issuing the encrypted and
// plaintext queries as one pgx.Batch (spec §4.4 "two further
// parameterized queries") so both round-trip in a single implicit
// transaction instead of two.
func (r *TagRetriever) Fetch(ctx context.Context, itemID int64) ([]record.Tag, error) {
	var tags []record.Tag

	batch := new(pgx.Batch)
	batch.Queue(fetchEncryptedTagsSQL, itemID).Query(func(rows pgx.Rows) error {
		for rows.Next() {
			var name, value []byte
			if err := rows.Scan(&name, &value); err != nil {
				return err
			}
			tags = append(tags, record.EncryptedTag(name, value))
		}
		return rows.Err()
	})
	batch.Queue(fetchPlaintextTagsSQL, itemID).Query(func(rows pgx.Rows) error {
		for rows.Next() {
			var name []byte
			var value string
			if err := rows.Scan(&name, &value); err != nil {
				return err
			}
			tags = append(tags, record.PlaintextTag(name, value))
		}
		return rows.Err()
	})

	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return nil, mapPgError("fetch tags", err)
	}

	return tags, nil
}
