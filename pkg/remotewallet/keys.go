package remotewallet

import (
	"strings"

	"github.com/cuemby/walletstore/pkg/storage"
)

// keyDelimiter separates type from id in the remote backend's combined
// wire key, following the "<item_type>::<item_id>" scheme `remote.rs`'s
// key_to_item_type_id/item_type_id_to_key helpers use. The storage
// contract's Store methods already carry type and id as separate
// arguments, so operations in wallet.go never need to split a combined
// string; joinKey/splitKey implement the combined form but nothing in
// the module calls them.
const keyDelimiter = "::"

// joinKey builds the combined wire key for (typ, id).
func joinKey(typ, id []byte) string {
	return string(typ) + keyDelimiter + string(id)
}

// splitKey reverses joinKey. A key without exactly one delimiter is
// rejected as InvalidStructure (spec §4.5).
func splitKey(key string) (typ, id string, err error) {
	parts := strings.Split(key, keyDelimiter)
	if len(parts) != 2 {
		return "", "", storage.Newf(storage.InvalidStructure, "remote key %q must contain exactly one %q delimiter", key, keyDelimiter)
	}
	return parts[0], parts[1], nil
}

// validateKeyParts rejects a (typ, id) pair that would make the combined
// wire key ambiguous to split back apart.
func validateKeyParts(typ, id []byte) error {
	if strings.Contains(string(typ), keyDelimiter) {
		return storage.Newf(storage.InvalidStructure, "remote item type %q must not contain %q", typ, keyDelimiter)
	}
	if strings.Contains(string(id), keyDelimiter) {
		return storage.Newf(storage.InvalidStructure, "remote item id %q must not contain %q", id, keyDelimiter)
	}
	return nil
}
