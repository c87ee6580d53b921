// Package pgwallet implements the storage contract (pkg/storage) against
// PostgreSQL: one physical database per wallet, with the four-table
// schema and transactional semantics of spec §4.4.
package pgwallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/walletstore/pkg/health"
	"github.com/cuemby/walletstore/pkg/metrics"
	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/storage"
	"github.com/cuemby/walletstore/pkg/tagquery"
)

// recordOp observes one storage operation's outcome and duration,
// labeled by this backend's registry name.
func recordOp(operation string, start time.Time, err *error) {
	outcome := "success"
	if *err != nil {
		outcome = "error"
	}
	metrics.WalletOperationsTotal.WithLabelValues(BackendName, operation, outcome).Inc()
	metrics.WalletOperationDuration.WithLabelValues(BackendName, operation).Observe(time.Since(start).Seconds())
}

// BackendName is the name this backend registers under (spec §4.6).
const BackendName = "relational"

func init() {
	storage.Register(BackendName, backend{})
}

type backend struct{}

// walletDBName derives a safe physical database name from the wallet id.
// Only ASCII letters, digits and underscore survive; everything else is
// replaced, keeping the identifier valid without ever string-formatting
// caller input into DDL untransformed.
func walletDBName(id string) string {
	var b strings.Builder
	b.WriteString("wallet_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func connString(cfg Config, account, password, dbName string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?connect_timeout=%d",
		account, password, cfg.URL, dbName, cfg.ConnectTimeoutSeconds,
	)
}

func checkReachable(ctx context.Context, cfg Config) error {
	host := cfg.URL
	if !strings.Contains(host, ":") {
		host = host + ":5432"
	}
	checker := health.NewTCPChecker(host).WithTimeout(time.Duration(cfg.ConnectTimeoutSeconds) * time.Second)
	result := checker.Check(ctx)
	if !result.Healthy {
		return storage.Newf(storage.AccessFailed, "postgres host unreachable: %s", result.Message)
	}
	return nil
}

func (backend) CreateStorage(ctx context.Context, id string, configRaw, credsRaw, metadata []byte) error {
	cfg, err := parseConfig(configRaw)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "create_storage", err)
	}
	creds, err := parseCredentials(credsRaw)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "create_storage", err)
	}
	if err := checkReachable(ctx, cfg); err != nil {
		return err
	}

	dbName := walletDBName(id)

	admin, err := pgx.Connect(ctx, connString(cfg, creds.AdminAccount, creds.AdminPassword, "postgres"))
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "create_storage: admin connect", err)
	}
	defer admin.Close(ctx)

	if _, err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{dbName}.Sanitize())); err != nil {
		return mapCreateDatabaseError(err)
	}

	conn, err := pgx.Connect(ctx, connString(cfg, creds.AdminAccount, creds.AdminPassword, dbName))
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "create_storage: schema connect", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, schemaDDL); err != nil {
		return mapPgError("create_storage: schema", err)
	}
	if metadata == nil {
		metadata = []byte{}
	}
	if _, err := conn.Exec(ctx, "INSERT INTO metadata (id, value) VALUES (1, $1)", metadata); err != nil {
		return mapPgError("create_storage: seed metadata", err)
	}

	if creds.Account != "" {
		stmt := fmt.Sprintf("GRANT ALL PRIVILEGES ON ALL TABLES IN SCHEMA public TO %s", pgx.Identifier{creds.Account}.Sanitize())
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return mapPgError("create_storage: grant", err)
		}
	}

	return nil
}

func (backend) OpenStorage(ctx context.Context, id string, configRaw, credsRaw []byte) (storage.Store, error) {
	cfg, err := parseConfig(configRaw)
	if err != nil {
		return nil, storage.Wrap(storage.InvalidStructure, "open_storage", err)
	}
	creds, err := parseCredentials(credsRaw)
	if err != nil {
		return nil, storage.Wrap(storage.InvalidStructure, "open_storage", err)
	}

	dbName := walletDBName(id)
	poolCfg, err := pgxpool.ParseConfig(connString(cfg, creds.Account, creds.Password, dbName))
	if err != nil {
		return nil, storage.Wrap(storage.InvalidStructure, "open_storage: parse url", err)
	}
	poolCfg.MaxConns = cfg.MaxConnections

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapOpenError(err)
	}

	var exists bool
	if err := pool.QueryRow(ctx, "SELECT true FROM metadata WHERE id = 1").Scan(&exists); err != nil {
		pool.Close()
		return nil, mapOpenError(err)
	}

	metrics.WalletsOpen.WithLabelValues(BackendName).Inc()
	return &Wallet{pool: pool, schema: tagquery.DefaultSQLSchema()}, nil
}

func (backend) DeleteStorage(ctx context.Context, id string, configRaw, credsRaw []byte) error {
	cfg, err := parseConfig(configRaw)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "delete_storage", err)
	}
	creds, err := parseCredentials(credsRaw)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "delete_storage", err)
	}

	dbName := walletDBName(id)
	admin, err := pgx.Connect(ctx, connString(cfg, creds.AdminAccount, creds.AdminPassword, "postgres"))
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "delete_storage: admin connect", err)
	}
	defer admin.Close(ctx)

	if _, err := admin.Exec(ctx, fmt.Sprintf(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = %s",
		quoteLiteral(dbName),
	)); err != nil {
		return mapPgError("delete_storage: terminate backends", err)
	}

	if _, err := admin.Exec(ctx, fmt.Sprintf("DROP DATABASE %s", pgx.Identifier{dbName}.Sanitize())); err != nil {
		return mapDropDatabaseError(err)
	}
	return nil
}

// quoteLiteral quotes a string as a SQL literal. It is used only for the
// single pg_stat_activity filter above, which cannot be parameterized
// through a plain Exec without losing portability across drivers; every
// record/tag value elsewhere in this package travels as a bound
// parameter instead.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Wallet implements storage.Store against one physical PostgreSQL
// database.
type Wallet struct {
	pool   *pgxpool.Pool
	schema tagquery.SQLSchema
}

func (w *Wallet) Close() error {
	w.pool.Close()
	metrics.WalletsOpen.WithLabelValues(BackendName).Dec()
	return nil
}

const insertItemSQL = `INSERT INTO items (type, name, value, key) VALUES ($1, $2, $3, $4) RETURNING id`

func (w *Wallet) Add(ctx context.Context, typ, id []byte, value record.EncryptedValue, tags []record.Tag) (err error) {
	defer recordOp("add", time.Now(), &err)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "add: begin", err)
	}
	defer tx.Rollback(ctx)

	var itemID int64
	if err := tx.QueryRow(ctx, insertItemSQL, typ, id, value.Data, value.Key).Scan(&itemID); err != nil {
		return mapPgError("add", err)
	}
	if err := insertTags(ctx, tx, itemID, tags); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError("add: commit", err)
	}
	return nil
}

func insertTags(ctx context.Context, q querier, itemID int64, tags []record.Tag) error {
	for _, t := range tags {
		switch t.Kind {
		case record.TagEncrypted:
			if _, err := q.Exec(ctx, `INSERT INTO tags_encrypted (name, value, item_id) VALUES ($1, $2, $3)`, t.Name, t.Value, itemID); err != nil {
				return mapPgError("add tag", err)
			}
		case record.TagPlaintext:
			if _, err := q.Exec(ctx, `INSERT INTO tags_plaintext (name, value, item_id) VALUES ($1, $2, $3)`, t.Name, t.PlainValue, itemID); err != nil {
				return mapPgError("add tag", err)
			}
		}
	}
	return nil
}

const updateItemSQL = `UPDATE items SET value = $1, key = $2 WHERE type = $3 AND name = $4`

func (w *Wallet) Update(ctx context.Context, typ, id []byte, value record.EncryptedValue) (err error) {
	defer recordOp("update", time.Now(), &err)

	tag, err := w.pool.Exec(ctx, updateItemSQL, value.Data, value.Key, typ, id)
	if err != nil {
		return mapPgError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.New(storage.ItemNotFound, "update: record not found")
	}
	return nil
}

func (w *Wallet) Get(ctx context.Context, typ, id []byte, options record.FetchOptions) (rec *record.Record, err error) {
	defer recordOp("get", time.Now(), &err)

	row := w.pool.QueryRow(ctx, `SELECT id, value, key FROM items WHERE type = $1 AND name = $2`, typ, id)

	var itemID int64
	var value, key []byte
	if err := row.Scan(&itemID, &value, &key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.New(storage.ItemNotFound, "get: record not found")
		}
		return nil, mapPgError("get", err)
	}

	rec = &record.Record{}
	if options.RetrieveType {
		rec.Type = typ
	}
	rec.ID = id
	if options.RetrieveValue {
		rec.Value = &record.EncryptedValue{Key: key, Data: value}
	}
	if options.RetrieveTags {
		tags, err := newTagRetriever(w.pool).Fetch(ctx, itemID)
		if err != nil {
			return nil, err
		}
		rec.Tags = tags
	}
	return rec, nil
}

func (w *Wallet) itemID(ctx context.Context, q querier, typ, id []byte) (int64, error) {
	var itemID int64
	err := q.QueryRow(ctx, `SELECT id FROM items WHERE type = $1 AND name = $2`, typ, id).Scan(&itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, storage.New(storage.ItemNotFound, "record not found")
	}
	if err != nil {
		return 0, mapPgError("lookup item", err)
	}
	return itemID, nil
}

func (w *Wallet) AddTags(ctx context.Context, typ, id []byte, tags []record.Tag) (err error) {
	defer recordOp("add_tags", time.Now(), &err)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "add_tags: begin", err)
	}
	defer tx.Rollback(ctx)

	itemID, err := w.itemID(ctx, tx, typ, id)
	if err != nil {
		return err
	}
	for _, t := range tags {
		switch t.Kind {
		case record.TagEncrypted:
			if _, err := tx.Exec(ctx, `
				INSERT INTO tags_encrypted (name, value, item_id) VALUES ($1, $2, $3)
				ON CONFLICT (name, item_id) DO UPDATE SET value = EXCLUDED.value`, t.Name, t.Value, itemID); err != nil {
				return mapPgError("add_tags", err)
			}
		case record.TagPlaintext:
			if _, err := tx.Exec(ctx, `
				INSERT INTO tags_plaintext (name, value, item_id) VALUES ($1, $2, $3)
				ON CONFLICT (name, item_id) DO UPDATE SET value = EXCLUDED.value`, t.Name, t.PlainValue, itemID); err != nil {
				return mapPgError("add_tags", err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError("add_tags: commit", err)
	}
	return nil
}

func (w *Wallet) UpdateTags(ctx context.Context, typ, id []byte, tags []record.Tag) (err error) {
	defer recordOp("update_tags", time.Now(), &err)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "update_tags: begin", err)
	}
	defer tx.Rollback(ctx)

	itemID, err := w.itemID(ctx, tx, typ, id)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tags_encrypted WHERE item_id = $1`, itemID); err != nil {
		return mapPgError("update_tags: clear encrypted", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tags_plaintext WHERE item_id = $1`, itemID); err != nil {
		return mapPgError("update_tags: clear plaintext", err)
	}
	if err := insertTags(ctx, tx, itemID, tags); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError("update_tags: commit", err)
	}
	return nil
}

func (w *Wallet) DeleteTags(ctx context.Context, typ, id []byte, names []record.TagName) (err error) {
	defer recordOp("delete_tags", time.Now(), &err)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "delete_tags: begin", err)
	}
	defer tx.Rollback(ctx)

	itemID, err := w.itemID(ctx, tx, typ, id)
	if err != nil {
		return err
	}
	for _, n := range names {
		table := "tags_encrypted"
		if n.Kind == record.TagPlaintext {
			table = "tags_plaintext"
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE item_id = $1 AND name = $2", table), itemID, n.Name); err != nil {
			return mapPgError("delete_tags", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError("delete_tags: commit", err)
	}
	return nil
}

func (w *Wallet) Delete(ctx context.Context, typ, id []byte) (err error) {
	defer recordOp("delete", time.Now(), &err)

	tag, err := w.pool.Exec(ctx, `DELETE FROM items WHERE type = $1 AND name = $2`, typ, id)
	if err != nil {
		return mapPgError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.New(storage.ItemNotFound, "delete: record not found")
	}
	return nil
}

func (w *Wallet) GetStorageMetadata(ctx context.Context) (value []byte, err error) {
	defer recordOp("get_storage_metadata", time.Now(), &err)

	if err := w.pool.QueryRow(ctx, `SELECT value FROM metadata WHERE id = 1`).Scan(&value); err != nil {
		return nil, mapPgError("get_storage_metadata", err)
	}
	return value, nil
}

func (w *Wallet) SetStorageMetadata(ctx context.Context, value []byte) (err error) {
	defer recordOp("set_storage_metadata", time.Now(), &err)

	tag, err := w.pool.Exec(ctx, `UPDATE metadata SET value = $1 WHERE id = 1`, value)
	if err != nil {
		return mapPgError("set_storage_metadata", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.New(storage.InvalidState, "set_storage_metadata: metadata row missing")
	}
	return nil
}

const itemProjection = "items.id, items.name, items.value, items.key, items.type"

func (w *Wallet) GetAll(ctx context.Context, options record.FetchOptions) (it storage.Iterator, err error) {
	defer recordOp("get_all", time.Now(), &err)

	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return nil, storage.Wrap(storage.AccessFailed, "get_all: acquire", err)
	}
	metrics.PoolConnectionsInUse.Inc()

	rows, err := conn.Query(ctx, fmt.Sprintf("SELECT %s FROM items", itemProjection))
	if err != nil {
		conn.Release()
		metrics.PoolConnectionsInUse.Dec()
		return nil, mapPgError("get_all", err)
	}

	return &rowIterator{
		conn:    conn,
		rows:    rows,
		tags:    newTagRetriever(conn),
		options: record.SearchOptions{FetchOptions: options, RetrieveRecords: true},
	}, nil
}

func (w *Wallet) Search(ctx context.Context, typ []byte, query tagquery.Node, options record.SearchOptions) (result storage.Iterator, err error) {
	var it *rowIterator
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.WalletOperationsTotal.WithLabelValues(BackendName, "search", outcome).Inc()
		metrics.WalletOperationDuration.WithLabelValues(BackendName, "search").Observe(time.Since(start).Seconds())
		if it != nil && it.haveTotal {
			metrics.SearchResultsTotal.WithLabelValues(BackendName).Observe(float64(it.total))
		}
	}()

	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return nil, storage.Wrap(storage.AccessFailed, "search: acquire", err)
	}
	metrics.PoolConnectionsInUse.Inc()
	release := func() {
		conn.Release()
		metrics.PoolConnectionsInUse.Dec()
	}

	it = &rowIterator{conn: conn, tags: newTagRetriever(conn), options: options}

	if options.RetrieveTotalCount {
		countSQL, countParams, err := tagquery.BuildSearchQuery(query, typ, w.schema, "COUNT(*)")
		if err != nil {
			release()
			return nil, storage.Wrap(storage.InvalidStructure, "search: compile count", err)
		}
		var total int
		if err := conn.QueryRow(ctx, countSQL, countParams...).Scan(&total); err != nil {
			release()
			return nil, mapPgError("search: count", err)
		}
		it.total = total
		it.haveTotal = true
	}

	if options.RetrieveRecords {
		querySQL, params, err := tagquery.BuildSearchQuery(query, typ, w.schema, itemProjection)
		if err != nil {
			release()
			return nil, storage.Wrap(storage.InvalidStructure, "search: compile", err)
		}
		rows, err := conn.Query(ctx, querySQL, params...)
		if err != nil {
			release()
			return nil, mapPgError("search", err)
		}
		it.rows = rows
	} else {
		release()
		it.conn = nil
	}

	return it, nil
}
