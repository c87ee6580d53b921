package filewallet

import (
	"github.com/cuemby/walletstore/pkg/storage"
)

// mapErr translates a bbolt/IO failure into the taxonomy of spec §7. It
// is the file backend's counterpart to pkg/pgwallet's mapPgError: unlike
// Postgres there is no structured error code to switch on, so every
// non-nil err from a bucket operation is reported as IOError; callers
// that need a more specific Kind (ItemNotFound, ItemAlreadyExists) check
// for that condition themselves before calling mapErr.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return storage.Wrap(storage.IOError, op, err)
}
