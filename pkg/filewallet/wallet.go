// Package filewallet implements the storage contract (pkg/storage) as a
// single encrypted BoltDB file per wallet (spec §4.7): one file named
// "<id>.walletdb" under the configured data directory, with a bucket per
// concern mirroring the relational backend's four tables.
package filewallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/walletstore/pkg/metrics"
	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/security"
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
const BackendName = "file"

func init() {
	storage.Register(BackendName, backend{})
}

var (
	bucketItems         = []byte("items")
	bucketTagsEncrypted = []byte("tags_encrypted")
	bucketTagsPlaintext = []byte("tags_plaintext")
	bucketMetadata      = []byte("metadata")
)

const metadataKey = "metadata"

type backend struct{}

func dbPath(cfg Config, id string) string {
	return filepath.Join(cfg.DataDir, id+".walletdb")
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

	path := dbPath(cfg, id)
	if _, err := os.Stat(path); err == nil {
		return storage.New(storage.AlreadyExists, "create_storage: wallet file already exists")
	} else if !os.IsNotExist(err) {
		return storage.Wrap(storage.IOError, "create_storage: stat", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return storage.Wrap(storage.IOError, "create_storage: mkdir", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return storage.Wrap(storage.AccessFailed, "create_storage: open", err)
	}
	defer db.Close()

	sm, err := security.NewSecretsManager(creds.Key)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "create_storage", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketItems, bucketTagsEncrypted, bucketTagsPlaintext, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		sealed, err := sm.Seal(metadata)
		if err != nil {
			return fmt.Errorf("seal metadata: %w", err)
		}
		return tx.Bucket(bucketMetadata).Put([]byte(metadataKey), sealed)
	})
	if err != nil {
		os.Remove(path)
		return mapErr("create_storage", err)
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

	path := dbPath(cfg, id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, storage.New(storage.NotFound, "open_storage: wallet does not exist")
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, storage.Wrap(storage.AccessFailed, "open_storage: open", err)
	}

	sm, err := security.NewSecretsManager(creds.Key)
	if err != nil {
		db.Close()
		return nil, storage.Wrap(storage.InvalidStructure, "open_storage", err)
	}

	w := &Wallet{db: db, sm: sm}
	if _, err := w.GetStorageMetadata(ctx); err != nil {
		db.Close()
		if storage.KindOf(err) == storage.IOError {
			return nil, storage.Wrap(storage.AccessFailed, "open_storage: wrong key or corrupt file", err)
		}
		return nil, err
	}
	metrics.WalletsOpen.WithLabelValues(BackendName).Inc()
	return w, nil
}

func (backend) DeleteStorage(ctx context.Context, id string, configRaw, credsRaw []byte) error {
	cfg, err := parseConfig(configRaw)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "delete_storage", err)
	}
	path := dbPath(cfg, id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return storage.New(storage.NotFound, "delete_storage: wallet does not exist")
		}
		return storage.Wrap(storage.IOError, "delete_storage", err)
	}
	return nil
}

// Wallet implements storage.Store over one open bbolt file.
type Wallet struct {
	db *bolt.DB
	sm *security.SecretsManager
}

func (w *Wallet) Close() error {
	err := w.db.Close()
	metrics.WalletsOpen.WithLabelValues(BackendName).Dec()
	return err
}

func itemKey(typ, id []byte) []byte {
	return record.JoinKey(typ, id)
}

func (w *Wallet) Add(ctx context.Context, typ, id []byte, value record.EncryptedValue, tags []record.Tag) (err error) {
	defer recordOp("add", time.Now(), &err)

	key := itemKey(typ, id)
	err = w.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(bucketItems)
		if items.Get(key) != nil {
			return errItemAlreadyExists
		}
		sealed, err := w.sm.Seal(value.ToBytes())
		if err != nil {
			return fmt.Errorf("seal value: %w", err)
		}
		if err := items.Put(key, sealed); err != nil {
			return err
		}
		return w.putTags(tx, key, tags)
	})
	if errors.Is(err, errItemAlreadyExists) {
		return storage.New(storage.ItemAlreadyExists, "add: record already exists")
	}
	return mapErr("add", err)
}

// errItemAlreadyExists is recognized by mapErr's caller below rather than
// by mapErr itself, so Add can surface the more specific Kind.
var errItemAlreadyExists = errors.New("item already exists")
var errItemNotFound = errors.New("item not found")

func (w *Wallet) putTags(tx *bolt.Tx, key []byte, tags []record.Tag) error {
	var enc, plain []record.Tag
	for _, t := range tags {
		if t.Kind == record.TagEncrypted {
			enc = append(enc, t)
		} else {
			plain = append(plain, t)
		}
	}
	if err := w.putTagBucket(tx, bucketTagsEncrypted, key, enc); err != nil {
		return err
	}
	return w.putTagBucket(tx, bucketTagsPlaintext, key, plain)
}

func (w *Wallet) putTagBucket(tx *bolt.Tx, bucketName, key []byte, tags []record.Tag) error {
	b := tx.Bucket(bucketName)
	if len(tags) == 0 {
		return b.Delete(key)
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	sealed, err := w.sm.Seal(data)
	if err != nil {
		return fmt.Errorf("seal tags: %w", err)
	}
	return b.Put(key, sealed)
}

func (w *Wallet) getTags(tx *bolt.Tx, bucketName, key []byte) ([]record.Tag, error) {
	raw := tx.Bucket(bucketName).Get(key)
	if raw == nil {
		return nil, nil
	}
	data, err := w.sm.Open(raw)
	if err != nil {
		return nil, fmt.Errorf("open tags: %w", err)
	}
	var tags []record.Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tags, nil
}

func (w *Wallet) allTags(tx *bolt.Tx, key []byte) ([]record.Tag, error) {
	enc, err := w.getTags(tx, bucketTagsEncrypted, key)
	if err != nil {
		return nil, err
	}
	plain, err := w.getTags(tx, bucketTagsPlaintext, key)
	if err != nil {
		return nil, err
	}
	return append(enc, plain...), nil
}

func (w *Wallet) Update(ctx context.Context, typ, id []byte, value record.EncryptedValue) (err error) {
	defer recordOp("update", time.Now(), &err)

	key := itemKey(typ, id)
	err = w.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(bucketItems)
		if items.Get(key) == nil {
			return errItemNotFound
		}
		sealed, err := w.sm.Seal(value.ToBytes())
		if err != nil {
			return fmt.Errorf("seal value: %w", err)
		}
		return items.Put(key, sealed)
	})
	if errors.Is(err, errItemNotFound) {
		return storage.New(storage.ItemNotFound, "update: record not found")
	}
	return mapErr("update", err)
}

func (w *Wallet) Get(ctx context.Context, typ, id []byte, options record.FetchOptions) (rec *record.Record, err error) {
	defer recordOp("get", time.Now(), &err)

	key := itemKey(typ, id)
	err = w.db.View(func(tx *bolt.Tx) error {
		sealed := tx.Bucket(bucketItems).Get(key)
		if sealed == nil {
			return errItemNotFound
		}
		raw, err := w.sm.Open(sealed)
		if err != nil {
			return fmt.Errorf("open value: %w", err)
		}
		value, err := record.FromBytes(raw)
		if err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		rec = &record.Record{ID: id}
		if options.RetrieveType {
			rec.Type = typ
		}
		if options.RetrieveValue {
			rec.Value = &value
		}
		if options.RetrieveTags {
			tags, err := w.allTags(tx, key)
			if err != nil {
				return err
			}
			rec.Tags = tags
		}
		return nil
	})
	if errors.Is(err, errItemNotFound) {
		return nil, storage.New(storage.ItemNotFound, "get: record not found")
	}
	if err != nil {
		return nil, mapErr("get", err)
	}
	return rec, nil
}

func (w *Wallet) AddTags(ctx context.Context, typ, id []byte, tags []record.Tag) (err error) {
	defer recordOp("add_tags", time.Now(), &err)

	key := itemKey(typ, id)
	err = w.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketItems).Get(key) == nil {
			return errItemNotFound
		}
		existing, err := w.allTags(tx, key)
		if err != nil {
			return err
		}
		return w.putTags(tx, key, mergeTags(existing, tags))
	})
	if errors.Is(err, errItemNotFound) {
		return storage.New(storage.ItemNotFound, "add_tags: record not found")
	}
	return mapErr("add_tags", err)
}

// mergeTags upserts incoming onto base by (Kind, Name), matching the
// relational backend's ON CONFLICT DO UPDATE semantics.
func mergeTags(base, incoming []record.Tag) []record.Tag {
	result := append([]record.Tag(nil), base...)
	for _, in := range incoming {
		replaced := false
		for i, cur := range result {
			if cur.Kind == in.Kind && string(cur.Name) == string(in.Name) {
				result[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			result = append(result, in)
		}
	}
	return result
}

func (w *Wallet) UpdateTags(ctx context.Context, typ, id []byte, tags []record.Tag) (err error) {
	defer recordOp("update_tags", time.Now(), &err)

	key := itemKey(typ, id)
	err = w.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketItems).Get(key) == nil {
			return errItemNotFound
		}
		return w.putTags(tx, key, tags)
	})
	if errors.Is(err, errItemNotFound) {
		return storage.New(storage.ItemNotFound, "update_tags: record not found")
	}
	return mapErr("update_tags", err)
}

func (w *Wallet) DeleteTags(ctx context.Context, typ, id []byte, names []record.TagName) (err error) {
	defer recordOp("delete_tags", time.Now(), &err)

	key := itemKey(typ, id)
	err = w.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketItems).Get(key) == nil {
			return errItemNotFound
		}
		existing, err := w.allTags(tx, key)
		if err != nil {
			return err
		}
		remaining := make([]record.Tag, 0, len(existing))
		for _, t := range existing {
			drop := false
			for _, n := range names {
				if n.Kind == t.Kind && string(n.Name) == string(t.Name) {
					drop = true
					break
				}
			}
			if !drop {
				remaining = append(remaining, t)
			}
		}
		return w.putTags(tx, key, remaining)
	})
	if errors.Is(err, errItemNotFound) {
		return storage.New(storage.ItemNotFound, "delete_tags: record not found")
	}
	return mapErr("delete_tags", err)
}

func (w *Wallet) Delete(ctx context.Context, typ, id []byte) (err error) {
	defer recordOp("delete", time.Now(), &err)

	key := itemKey(typ, id)
	err = w.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(bucketItems)
		if items.Get(key) == nil {
			return errItemNotFound
		}
		if err := items.Delete(key); err != nil {
			return err
		}
		if err := tx.Bucket(bucketTagsEncrypted).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketTagsPlaintext).Delete(key)
	})
	if errors.Is(err, errItemNotFound) {
		return storage.New(storage.ItemNotFound, "delete: record not found")
	}
	return mapErr("delete", err)
}

func (w *Wallet) GetStorageMetadata(ctx context.Context) (value []byte, err error) {
	defer recordOp("get_storage_metadata", time.Now(), &err)

	err = w.db.View(func(tx *bolt.Tx) error {
		sealed := tx.Bucket(bucketMetadata).Get([]byte(metadataKey))
		if sealed == nil {
			return errors.New("metadata missing")
		}
		opened, err := w.sm.Open(sealed)
		if err != nil {
			return err
		}
		value = opened
		return nil
	})
	if err != nil {
		return nil, mapErr("get_storage_metadata", err)
	}
	return value, nil
}

func (w *Wallet) SetStorageMetadata(ctx context.Context, value []byte) (err error) {
	defer recordOp("set_storage_metadata", time.Now(), &err)

	err = w.db.Update(func(tx *bolt.Tx) error {
		sealed, err := w.sm.Seal(value)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMetadata).Put([]byte(metadataKey), sealed)
	})
	return mapErr("set_storage_metadata", err)
}

// candidate is one item surviving a bucket scan, carrying the parts
// needed to finish materializing a record without re-reading the bucket.
type candidate struct {
	typ, id []byte
	value   record.EncryptedValue
	tags    []record.Tag
}

func (w *Wallet) scan(ctx context.Context, typeFilter []byte, query tagquery.Node) ([]candidate, error) {
	var out []candidate
	err := w.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			typ, id, err := record.SplitKey(k)
			if err != nil {
				return fmt.Errorf("decode key: %w", err)
			}
			if typeFilter != nil && string(typ) != string(typeFilter) {
				return nil
			}
			tags, err := w.allTags(tx, k)
			if err != nil {
				return err
			}
			if query != nil {
				ok, err := tagquery.Evaluate(query, tags)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			raw, err := w.sm.Open(v)
			if err != nil {
				return fmt.Errorf("open value: %w", err)
			}
			value, err := record.FromBytes(raw)
			if err != nil {
				return fmt.Errorf("decode value: %w", err)
			}
			out = append(out, candidate{typ: typ, id: id, value: value, tags: tags})
			return nil
		})
	})
	if err != nil {
		var ce *tagquery.CompileError
		if errors.As(err, &ce) {
			return nil, storage.Wrap(storage.InvalidStructure, "scan", err)
		}
		return nil, mapErr("scan", err)
	}
	return out, nil
}

func (w *Wallet) GetAll(ctx context.Context, options record.FetchOptions) (it storage.Iterator, err error) {
	defer recordOp("get_all", time.Now(), &err)

	candidates, err := w.scan(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	metrics.RecordsTotal.WithLabelValues(BackendName).Set(float64(len(candidates)))
	return newSliceIterator(candidates, record.SearchOptions{FetchOptions: options, RetrieveRecords: true}), nil
}

func (w *Wallet) Search(ctx context.Context, typ []byte, query tagquery.Node, options record.SearchOptions) (result storage.Iterator, err error) {
	defer recordOp("search", time.Now(), &err)

	candidates, err := w.scan(ctx, typ, query)
	if err != nil {
		return nil, err
	}
	metrics.SearchResultsTotal.WithLabelValues(BackendName).Observe(float64(len(candidates)))
	it := newSliceIterator(candidates, options)
	if options.RetrieveTotalCount {
		it.total = len(candidates)
		it.haveTotal = true
	}
	if !options.RetrieveRecords {
		it.candidates = nil
	}
	return it, nil
}
