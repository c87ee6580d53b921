// Package remotewallet implements the storage contract (pkg/storage)
// against an HTTP JSON proxy that multiplexes many virtual wallets onto
// one physical store (spec §4.5). It is grounded on
// original_source/libindy/src/services/wallet/remote.rs: the virtual
// wallet discriminator, the "item_type::item_id" key scheme, and the
// root-fallback read rule all carry over from there; the wire surface
// itself (keyval endpoints, wallet_name/item_type/item_id/item_value/
// id/created fields) is spec.md §6's "Remote HTTP surface", reproduced
// literally since remote.rs's own version of that surface was left
// unfinished.
package remotewallet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

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

// BackendName is the registry key this package registers itself under.
const BackendName = "remote"

func init() {
	storage.Register(BackendName, backend{})
}

// metadataItemType/metadataItemID address the wallet-wide metadata
// singleton as a reserved keyval item, always in the root wallet: the
// metadata slot is a property of the storage, not of any one subject's
// virtual wallet (spec §4.4's relational "singleton row" carried over
// to a reserved remote item).
const (
	metadataItemType = "__metadata__"
	metadataItemID   = "singleton"
)

type backend struct{}

// CreateStorage verifies the server is reachable and seeds the metadata
// singleton; no other remote-side creation happens, since wallets are
// virtual (spec §4.5).
func (backend) CreateStorage(ctx context.Context, id string, configRaw, credsRaw, metadata []byte) error {
	cfg, err := parseConfig(configRaw)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "create_storage", err)
	}
	creds, err := parseCredentials(credsRaw)
	if err != nil {
		return storage.Wrap(storage.InvalidStructure, "create_storage", err)
	}
	c, err := newClient(cfg, creds)
	if err != nil {
		return storage.Wrap(storage.IOError, "create_storage", err)
	}
	if err := c.checkReachable(ctx); err != nil {
		return err
	}

	encoded, err := encodeEnvelope(envelope{Value: record.EncryptedValue{Data: metadata}})
	if err != nil {
		return storage.Wrap(storage.IOError, "create_storage", err)
	}
	body := keyvalBody{WalletName: id, ItemType: metadataItemType, ItemID: metadataItemID, ItemValue: encoded}
	status, err := c.do(ctx, http.MethodPost, c.createURL(), body, nil, false)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return storage.New(storage.AlreadyExists, "create_storage: wallet already exists")
	}
	if status >= 300 {
		return storage.Newf(statusKind(status), "create_storage: HTTP %d", status)
	}
	return nil
}

// OpenStorage performs the one-time authenticate exchange (SPEC_FULL
// §4.5) and then confirms the metadata singleton exists, translating a
// missing singleton into NotFound the way CreateStorage's absence of
// the wallet would be reported by the other two backends.
func (backend) OpenStorage(ctx context.Context, id string, configRaw, credsRaw []byte) (storage.Store, error) {
	cfg, err := parseConfig(configRaw)
	if err != nil {
		return nil, storage.Wrap(storage.InvalidStructure, "open_storage", err)
	}
	creds, err := parseCredentials(credsRaw)
	if err != nil {
		return nil, storage.Wrap(storage.InvalidStructure, "open_storage", err)
	}
	c, err := newClient(cfg, creds)
	if err != nil {
		return nil, storage.Wrap(storage.IOError, "open_storage", err)
	}
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	w := &Wallet{
		c:             c,
		rootWallet:    id,
		virtualWallet: virtualWalletFor(id, creds),
		freshness:     time.Duration(cfg.FreshnessSeconds) * time.Second,
	}
	if _, err := w.GetStorageMetadata(ctx); err != nil {
		if storage.KindOf(err) == storage.ItemNotFound {
			return nil, storage.New(storage.NotFound, "open_storage: wallet not found")
		}
		return nil, err
	}
	metrics.WalletsOpen.WithLabelValues(BackendName).Inc()
	return w, nil
}

// DeleteStorage is a pure no-op: it verifies nothing and always
// succeeds, since remote wallets are virtual discriminators over one
// physical store rather than separately provisioned state (spec §4.5,
// decided as Open Question #1 in DESIGN.md).
func (backend) DeleteStorage(ctx context.Context, id string, configRaw, credsRaw []byte) error {
	return nil
}

// Wallet is the per-wallet handle OpenStorage returns.
type Wallet struct {
	c             *client
	rootWallet    string
	virtualWallet string
	freshness     time.Duration
}

// envelope is how this module's own opaque item_value multiplexes a
// record's value and tags onto the single value field the remote wire
// surface exposes (spec §6 lists no tags field): the original proxy is
// a plain key/value store, so tags are this module's own addition,
// carried as JSON inside the base64 item_value string rather than
// widening the wire surface itself.
type envelope struct {
	Value record.EncryptedValue `json:"value"`
	Tags  []record.Tag          `json:"tags,omitempty"`
}

func encodeEnvelope(env envelope) (string, error) {
	buf, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func decodeEnvelope(s string) (envelope, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}

func virtualWalletFor(walletID string, creds Credentials) string {
	if creds.VirtualWallet != "" {
		return creds.VirtualWallet
	}
	return walletID
}

func (w *Wallet) getItem(ctx context.Context, virtualWallet, itemType, itemID string) (keyvalBody, int, error) {
	var body keyvalBody
	status, err := w.c.do(ctx, http.MethodGet, w.c.itemURL(virtualWallet, itemType, itemID), nil, &body, false)
	if err != nil {
		return keyvalBody{}, status, err
	}
	return body, status, nil
}

// Add creates a new record, scoped to the current virtual wallet only:
// existence is never checked against the root wallet, so two virtual
// wallets may hold distinct records under the same (type, id).
func (w *Wallet) Add(ctx context.Context, typ, id []byte, value record.EncryptedValue, tags []record.Tag) (err error) {
	defer recordOp("add", time.Now(), &err)

	if err := validateKeyParts(typ, id); err != nil {
		return err
	}
	itemType, itemID := string(typ), string(id)

	_, status, err := w.getItem(ctx, w.virtualWallet, itemType, itemID)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return storage.New(storage.ItemAlreadyExists, "add: record already exists")
	case http.StatusNotFound:
	default:
		return storage.Newf(statusKind(status), "add: existence check failed: HTTP %d", status)
	}

	encoded, err := encodeEnvelope(envelope{Value: value, Tags: tags})
	if err != nil {
		return storage.Wrap(storage.IOError, "add", err)
	}
	body := keyvalBody{WalletName: w.virtualWallet, ItemType: itemType, ItemID: itemID, ItemValue: encoded}
	status, err = w.c.do(ctx, http.MethodPost, w.c.createURL(), body, nil, false)
	if err != nil {
		return err
	}
	if status >= 300 {
		return storage.Newf(statusKind(status), "add: create failed: HTTP %d", status)
	}
	return nil
}

// Update replaces a record's value, preserving its tags. The create-vs-
// update choice baked into spec §4.5's "set" description is split across
// Add and Update here, matching the storage contract's two distinct
// failure conditions rather than the single derived "set" of the
// original.
func (w *Wallet) Update(ctx context.Context, typ, id []byte, value record.EncryptedValue) (err error) {
	defer recordOp("update", time.Now(), &err)

	if err := validateKeyParts(typ, id); err != nil {
		return err
	}
	itemType, itemID := string(typ), string(id)

	body, status, err := w.getItem(ctx, w.virtualWallet, itemType, itemID)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return storage.New(storage.ItemNotFound, "update: record not found")
	}
	if status != http.StatusOK {
		return storage.Newf(statusKind(status), "update: existence check failed: HTTP %d", status)
	}

	existing, err := decodeEnvelope(body.ItemValue)
	if err != nil {
		return storage.Wrap(storage.IOError, "update: decode", err)
	}
	encoded, err := encodeEnvelope(envelope{Value: value, Tags: existing.Tags})
	if err != nil {
		return storage.Wrap(storage.IOError, "update", err)
	}
	reqBody := keyvalBody{WalletName: w.virtualWallet, ItemType: itemType, ItemID: itemID, ItemValue: encoded}
	status, err = w.c.do(ctx, http.MethodPut, w.c.updateURL(body.ID), reqBody, nil, false)
	if err != nil {
		return err
	}
	if status >= 300 {
		return storage.Newf(statusKind(status), "update: HTTP %d", status)
	}
	return nil
}

// Get fetches a record, applying root fallback (spec §4.5 "get semantics
// with root fallback") and the freshness check (spec §4.5 "freshness").
func (w *Wallet) Get(ctx context.Context, typ, id []byte, options record.FetchOptions) (rec *record.Record, err error) {
	defer recordOp("get", time.Now(), &err)

	if err := validateKeyParts(typ, id); err != nil {
		return nil, err
	}
	itemType, itemID := string(typ), string(id)

	body, status, err := w.getItem(ctx, w.virtualWallet, itemType, itemID)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound && w.virtualWallet != w.rootWallet {
		metrics.RemoteRootFallbacksTotal.Inc()
		body, status, err = w.getItem(ctx, w.rootWallet, itemType, itemID)
		if err != nil {
			return nil, err
		}
	}
	if status == http.StatusNotFound {
		return nil, storage.New(storage.ItemNotFound, "get: record not found")
	}
	if status != http.StatusOK {
		return nil, storage.Newf(statusKind(status), "get: HTTP %d", status)
	}
	if err := w.checkFreshness(body); err != nil {
		return nil, err
	}
	return w.recordFromBody(typ, id, body, options)
}

// checkFreshness implements "get_not_expired": a stale record is
// reported as absent regardless of whether it exists (spec §4.5).
func (w *Wallet) checkFreshness(body keyvalBody) error {
	if w.freshness <= 0 || body.Created == "" {
		return nil
	}
	created, err := time.Parse(time.RFC3339Nano, body.Created)
	if err != nil {
		return storage.Wrap(storage.IOError, "get: parse created timestamp", err)
	}
	if time.Since(created.UTC()) > w.freshness {
		return storage.New(storage.ItemNotFound, "get: record expired")
	}
	return nil
}

func (w *Wallet) recordFromBody(typ, id []byte, body keyvalBody, options record.FetchOptions) (*record.Record, error) {
	env, err := decodeEnvelope(body.ItemValue)
	if err != nil {
		return nil, storage.Wrap(storage.IOError, "decode item value", err)
	}
	rec := &record.Record{ID: id}
	if options.RetrieveType {
		rec.Type = typ
	}
	if options.RetrieveValue {
		v := env.Value
		rec.Value = &v
	}
	if options.RetrieveTags {
		rec.Tags = env.Tags
	}
	return rec, nil
}

// AddTags merges tags into a record's tag set, scoped to the current
// virtual wallet only (no root fallback: a tag mutation always targets
// this wallet's own copy of the record).
func (w *Wallet) AddTags(ctx context.Context, typ, id []byte, tags []record.Tag) (err error) {
	defer recordOp("add_tags", time.Now(), &err)
	return w.mutateTags(ctx, typ, id, func(existing []record.Tag) []record.Tag {
		return mergeTags(existing, tags)
	})
}

// UpdateTags replaces a record's entire tag set.
func (w *Wallet) UpdateTags(ctx context.Context, typ, id []byte, tags []record.Tag) (err error) {
	defer recordOp("update_tags", time.Now(), &err)
	return w.mutateTags(ctx, typ, id, func([]record.Tag) []record.Tag {
		return tags
	})
}

// DeleteTags removes tags by name; unknown names are silently ignored.
func (w *Wallet) DeleteTags(ctx context.Context, typ, id []byte, names []record.TagName) (err error) {
	defer recordOp("delete_tags", time.Now(), &err)
	return w.mutateTags(ctx, typ, id, func(existing []record.Tag) []record.Tag {
		return removeTags(existing, names)
	})
}

func (w *Wallet) mutateTags(ctx context.Context, typ, id []byte, mutate func([]record.Tag) []record.Tag) error {
	if err := validateKeyParts(typ, id); err != nil {
		return err
	}
	itemType, itemID := string(typ), string(id)

	body, status, err := w.getItem(ctx, w.virtualWallet, itemType, itemID)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return storage.New(storage.ItemNotFound, "tags: record not found")
	}
	if status != http.StatusOK {
		return storage.Newf(statusKind(status), "tags: existence check failed: HTTP %d", status)
	}

	existing, err := decodeEnvelope(body.ItemValue)
	if err != nil {
		return storage.Wrap(storage.IOError, "tags: decode", err)
	}
	encoded, err := encodeEnvelope(envelope{Value: existing.Value, Tags: mutate(existing.Tags)})
	if err != nil {
		return storage.Wrap(storage.IOError, "tags: encode", err)
	}
	reqBody := keyvalBody{WalletName: w.virtualWallet, ItemType: itemType, ItemID: itemID, ItemValue: encoded}
	status, err = w.c.do(ctx, http.MethodPut, w.c.updateURL(body.ID), reqBody, nil, false)
	if err != nil {
		return err
	}
	if status >= 300 {
		return storage.Newf(statusKind(status), "tags: HTTP %d", status)
	}
	return nil
}

// mergeTags upserts incoming tags into base by (Kind, Name), matching
// the relational backend's ON CONFLICT DO UPDATE semantics.
func mergeTags(base, incoming []record.Tag) []record.Tag {
	out := append([]record.Tag(nil), base...)
	for _, tag := range incoming {
		replaced := false
		for i := range out {
			if out[i].Kind == tag.Kind && string(out[i].Name) == string(tag.Name) {
				out[i] = tag
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, tag)
		}
	}
	return out
}

func removeTags(base []record.Tag, names []record.TagName) []record.Tag {
	out := make([]record.Tag, 0, len(base))
	for _, tag := range base {
		drop := false
		for _, n := range names {
			if tag.Kind == n.Kind && string(tag.Name) == string(n.Name) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, tag)
		}
	}
	return out
}

// Delete removes a record. The remote wire surface spec.md §4.5/§6
// documents has no item-delete endpoint (only health/auth/list/item/
// create/update); this module fills that gap with the obvious verb for
// the existing item resource, HTTP DELETE on the item endpoint, rather
// than leaving Delete unimplementable (DESIGN.md Open Question #4).
func (w *Wallet) Delete(ctx context.Context, typ, id []byte) (err error) {
	defer recordOp("delete", time.Now(), &err)

	if err := validateKeyParts(typ, id); err != nil {
		return err
	}
	itemType, itemID := string(typ), string(id)

	_, status, err := w.getItem(ctx, w.virtualWallet, itemType, itemID)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return storage.New(storage.ItemNotFound, "delete: record not found")
	}
	if status != http.StatusOK {
		return storage.Newf(statusKind(status), "delete: existence check failed: HTTP %d", status)
	}

	status, err = w.c.do(ctx, http.MethodDelete, w.c.itemURL(w.virtualWallet, itemType, itemID), nil, nil, false)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return storage.Newf(statusKind(status), "delete: HTTP %d", status)
	}
	return nil
}

// GetStorageMetadata returns the wallet's metadata slot, always read
// from the root wallet: the slot is a property of the storage, not of
// any one virtual wallet.
func (w *Wallet) GetStorageMetadata(ctx context.Context) (value []byte, err error) {
	defer recordOp("get_storage_metadata", time.Now(), &err)

	body, status, err := w.getItem(ctx, w.rootWallet, metadataItemType, metadataItemID)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, storage.Newf(statusKind(status), "get_storage_metadata: HTTP %d", status)
	}
	env, err := decodeEnvelope(body.ItemValue)
	if err != nil {
		return nil, storage.Wrap(storage.IOError, "get_storage_metadata: decode", err)
	}
	return env.Value.Data, nil
}

// SetStorageMetadata replaces the metadata slot. Like the relational
// backend's set_storage_metadata, it only ever updates the singleton
// row created by CreateStorage; it never creates one.
func (w *Wallet) SetStorageMetadata(ctx context.Context, value []byte) (err error) {
	defer recordOp("set_storage_metadata", time.Now(), &err)

	body, status, err := w.getItem(ctx, w.rootWallet, metadataItemType, metadataItemID)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return storage.Newf(statusKind(status), "set_storage_metadata: metadata row missing: HTTP %d", status)
	}
	encoded, err := encodeEnvelope(envelope{Value: record.EncryptedValue{Data: value}})
	if err != nil {
		return storage.Wrap(storage.IOError, "set_storage_metadata", err)
	}
	reqBody := keyvalBody{WalletName: w.rootWallet, ItemType: metadataItemType, ItemID: metadataItemID, ItemValue: encoded}
	status, err = w.c.do(ctx, http.MethodPut, w.c.updateURL(body.ID), reqBody, nil, false)
	if err != nil {
		return err
	}
	if status >= 300 {
		return storage.Newf(statusKind(status), "set_storage_metadata: HTTP %d", status)
	}
	return nil
}

// GetAll has no backing endpoint: the remote wire surface only lists by
// (virtual wallet, item type), never the whole wallet across types
// (spec §4.5 "list semantics"). Rather than approximate it by guessing
// at type names, this reports the gap explicitly (DESIGN.md Open
// Question #5), consistent with the contract's "InvalidStructure rather
// than silently degrading" design principle.
func (w *Wallet) GetAll(ctx context.Context, options record.FetchOptions) (storage.Iterator, error) {
	err := storage.New(storage.InvalidStructure, "get_all: remote backend has no un-scoped listing endpoint; use Search with a type")
	recordOp("get_all", time.Now(), &err)
	return nil, err
}

// Search lists items of typ in the current virtual wallet — root
// fallback is not applied to lists (spec §4.5) — optionally narrowed by
// a query-string hint from compileURLQuery, then authoritatively
// re-filters every candidate against the full AST with
// tagquery.Evaluate so an unfiltering proxy never produces a wrong
// answer.
func (w *Wallet) Search(ctx context.Context, typ []byte, query tagquery.Node, options record.SearchOptions) (it storage.Iterator, err error) {
	defer recordOp("search", time.Now(), &err)

	params, err := compileURLQuery(query)
	if err != nil {
		return nil, err
	}
	listURL := w.c.listURL(w.virtualWallet, string(typ))
	if len(params) > 0 {
		listURL += "?" + params.Encode()
	}

	var items []keyvalBody
	status, err := w.c.do(ctx, http.MethodGet, listURL, nil, &items, false)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, storage.Newf(statusKind(status), "search: HTTP %d", status)
	}

	var records []record.Record
	for _, item := range items {
		env, err := decodeEnvelope(item.ItemValue)
		if err != nil {
			return nil, storage.Wrap(storage.IOError, "search: decode", err)
		}
		ok, err := tagquery.Evaluate(query, env.Tags)
		if err != nil {
			return nil, storage.Wrap(storage.InvalidStructure, "search", err)
		}
		if !ok {
			continue
		}
		rec := record.Record{ID: []byte(item.ItemID)}
		if options.RetrieveType {
			rec.Type = typ
		}
		if options.RetrieveValue {
			v := env.Value
			rec.Value = &v
		}
		if options.RetrieveTags {
			rec.Tags = env.Tags
		}
		records = append(records, rec)
	}
	metrics.SearchResultsTotal.WithLabelValues(BackendName).Observe(float64(len(records)))
	total := len(records)
	if !options.RetrieveRecords {
		records = nil
	}
	return newListIterator(records, total, options.RetrieveTotalCount), nil
}

// Close releases no resources: the remote backend holds nothing beyond
// the http.Client, which owns no wallet-scoped state.
func (w *Wallet) Close() error {
	metrics.WalletsOpen.WithLabelValues(BackendName).Dec()
	return nil
}
