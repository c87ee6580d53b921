package pgwallet

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cuemby/walletstore/pkg/storage"
)

// Postgres SQLSTATE codes this backend distinguishes (spec §4.4 error
// mapping). See https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateDuplicateDatabase   = "42P04"
	sqlStateInvalidCatalogName  = "3D000"
)

// mapPgError translates a driver error into the taxonomy of spec §7.
// A unique-violation on items or the tag tables during add is reported
// as ItemAlreadyExists (spec §4.4's "treated as a duplicate record").
func mapPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return storage.Wrap(storage.ItemAlreadyExists, op+": duplicate record or tag", err)
		case sqlStateForeignKeyViolation:
			return storage.Wrap(storage.ItemNotFound, op+": referenced record does not exist", err)
		}
	}
	return storage.Wrap(storage.IOError, op, err)
}

// mapCreateDatabaseError translates the error from a CREATE DATABASE
// statement, which reports duplicates under its own SQLSTATE rather
// than the generic unique_violation used by table constraints.
func mapCreateDatabaseError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateDuplicateDatabase {
		return storage.Wrap(storage.AlreadyExists, "create_storage: database already exists", err)
	}
	return storage.Wrap(storage.IOError, "create_storage", err)
}

// mapDropDatabaseError translates the error from a DROP DATABASE
// statement targeting a wallet that was never created or already
// deleted.
func mapDropDatabaseError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInvalidCatalogName {
		return storage.Wrap(storage.NotFound, "delete_storage: database does not exist", err)
	}
	return storage.Wrap(storage.IOError, "delete_storage", err)
}

// mapOpenError translates a pool-creation or metadata-probe failure at
// open_storage time. An invalid catalog name means the wallet database
// was never created.
func mapOpenError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInvalidCatalogName {
		return storage.Wrap(storage.NotFound, "open_storage: wallet does not exist", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Wrap(storage.NotFound, "open_storage: wallet metadata missing", err)
	}
	return storage.Wrap(storage.AccessFailed, "open_storage", err)
}
