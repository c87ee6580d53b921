package remotewallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/storage"
	"github.com/cuemby/walletstore/pkg/storage/storetest"
	"github.com/cuemby/walletstore/pkg/tagquery"
)

// fakeItem mirrors the wire shape of keyvalBody for the in-process test
// double: a minimal stand-in for the proxy server spec §4.5 describes.
type fakeItem struct {
	ID         string `json:"id,omitempty"`
	WalletName string `json:"wallet_name,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	ItemValue  string `json:"item_value"`
	Created    string `json:"created,omitempty"`
}

type fakeServer struct {
	mu     sync.Mutex
	items  map[string]*fakeItem
	nextID int
}

func newFakeServer() *fakeServer {
	return &fakeServer{items: map[string]*fakeItem{}}
}

func (s *fakeServer) put(item *fakeItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = strconv.Itoa(s.nextID)
	s.items[item.ID] = item
}

func (s *fakeServer) find(wallet, typ, id string) *fakeItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.WalletName == wallet && it.ItemType == typ && it.ItemID == id {
			return it
		}
	}
	return nil
}

func (s *fakeServer) list(wallet, typ string) []fakeItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fakeItem
	for _, it := range s.items {
		if it.WalletName == wallet && it.ItemType == typ {
			out = append(out, *it)
		}
	}
	return out
}

func (s *fakeServer) deleteItem(wallet, typ, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, it := range s.items {
		if it.WalletName == wallet && it.ItemType == typ && it.ItemID == id {
			delete(s.items, key)
			return true
		}
	}
	return false
}

func (s *fakeServer) byServerID(id string) *fakeItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

// handler implements just enough of the remote wire surface (spec §4.5,
// §6) to exercise this package's client: health, auth exchange, keyval
// create/update/list/item/delete.
func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/schema/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api-token-auth/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/keyval/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/keyval/"), "/")
		var segments []string
		if path != "" {
			segments = strings.Split(path, "/")
		}
		for i, seg := range segments {
			unescaped, err := url.PathUnescape(seg)
			if err == nil {
				segments[i] = unescaped
			}
		}

		switch {
		case len(segments) == 0 && r.Method == http.MethodPost:
			s.handleCreate(w, r)
		case len(segments) == 1 && r.Method == http.MethodPut:
			s.handleUpdate(w, r, segments[0])
		case len(segments) == 2 && r.Method == http.MethodGet:
			s.handleList(w, segments[0], segments[1])
		case len(segments) == 3 && r.Method == http.MethodGet:
			s.handleGet(w, segments[0], segments[1], segments[2])
		case len(segments) == 3 && r.Method == http.MethodDelete:
			s.handleDelete(w, segments[0], segments[1], segments[2])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func (s *fakeServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body fakeItem
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if s.find(body.WalletName, body.ItemType, body.ItemID) != nil {
		w.WriteHeader(http.StatusConflict)
		return
	}
	body.Created = time.Now().UTC().Format(time.RFC3339Nano)
	s.put(&body)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(body)
}

func (s *fakeServer) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	existing := s.byServerID(id)
	if existing == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var body fakeItem
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	existing.ItemValue = body.ItemValue
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(existing)
}

func (s *fakeServer) handleList(w http.ResponseWriter, wallet, typ string) {
	items := s.list(wallet, typ)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(items)
}

func (s *fakeServer) handleGet(w http.ResponseWriter, wallet, typ, id string) {
	item := s.find(wallet, typ, id)
	if item == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(item)
}

func (s *fakeServer) handleDelete(w http.ResponseWriter, wallet, typ, id string) {
	if !s.deleteItem(wallet, typ, id) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeServer) {
	t.Helper()
	fake := newFakeServer()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return srv, fake
}

func testConfig(endpoint string, freshnessSeconds int64) []byte {
	cfg, _ := json.Marshal(Config{Endpoint: endpoint, FreshnessSeconds: freshnessSeconds, TimeoutSeconds: 5})
	return cfg
}

func testCreds(virtualWallet string) []byte {
	creds, _ := json.Marshal(Credentials{AuthToken: "test-token", VirtualWallet: virtualWallet})
	return creds
}

func openTestWallet(t *testing.T, endpoint, walletID, virtualWallet string) storage.Store {
	t.Helper()
	b := backend{}
	store, err := b.OpenStorage(context.Background(), walletID, testConfig(endpoint, 0), testCreds(virtualWallet))
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateOpenStorage(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	b := backend{}

	if err := b.CreateStorage(ctx, "wallet1", testConfig(srv.URL, 0), testCreds(""), []byte("seed")); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	store := openTestWallet(t, srv.URL, "wallet1", "")
	meta, err := store.GetStorageMetadata(ctx)
	if err != nil {
		t.Fatalf("GetStorageMetadata: %v", err)
	}
	if string(meta) != "seed" {
		t.Fatalf("metadata = %q, want %q", meta, "seed")
	}
}

func TestOpenStorageMissingWallet(t *testing.T) {
	srv, _ := newTestServer(t)
	b := backend{}
	_, err := b.OpenStorage(context.Background(), "nope", testConfig(srv.URL, 0), testCreds(""))
	if storage.KindOf(err) != storage.NotFound {
		t.Fatalf("OpenStorage missing kind = %v, want NotFound", storage.KindOf(err))
	}
}

func TestAddGetUpdateDeleteRecord(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	b := backend{}
	if err := b.CreateStorage(ctx, "wallet2", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	store := openTestWallet(t, srv.URL, "wallet2", "")

	typ, id := []byte("credential"), []byte("rec-1")
	value := record.EncryptedValue{Key: make([]byte, 32), Data: []byte("ciphertext-v1")}
	tags := []record.Tag{record.PlaintextTag([]byte("issuer"), "acme")}

	if err := store.Add(ctx, typ, id, value, tags); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(ctx, typ, id, value, tags); storage.KindOf(err) != storage.ItemAlreadyExists {
		t.Fatalf("duplicate Add kind = %v, want ItemAlreadyExists", storage.KindOf(err))
	}

	got, err := store.Get(ctx, typ, id, record.FetchOptions{RetrieveValue: true, RetrieveTags: true})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Value.Equal(value) {
		t.Errorf("Get value = %+v, want %+v", got.Value, value)
	}
	if len(got.Tags) != 1 {
		t.Errorf("Get tags = %d, want 1", len(got.Tags))
	}

	updated := record.EncryptedValue{Key: value.Key, Data: []byte("ciphertext-v2")}
	if err := store.Update(ctx, typ, id, updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = store.Get(ctx, typ, id, record.FetchOptions{RetrieveValue: true})
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if !got.Value.Equal(updated) {
		t.Errorf("Get after update = %+v, want %+v", got.Value, updated)
	}

	if err := store.Delete(ctx, typ, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, typ, id, record.DefaultFetchOptions()); storage.KindOf(err) != storage.ItemNotFound {
		t.Fatalf("Get after delete kind = %v, want ItemNotFound", storage.KindOf(err))
	}
}

func TestTagLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	b := backend{}
	if err := b.CreateStorage(ctx, "wallet3", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	store := openTestWallet(t, srv.URL, "wallet3", "")
	typ, id := []byte("credential"), []byte("rec-tags")
	value := record.EncryptedValue{Key: make([]byte, 32), Data: []byte("v")}
	if err := store.Add(ctx, typ, id, value, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.AddTags(ctx, typ, id, []record.Tag{record.PlaintextTag([]byte("status"), "active")}); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if err := store.AddTags(ctx, typ, id, []record.Tag{record.PlaintextTag([]byte("status"), "revoked")}); err != nil {
		t.Fatalf("AddTags upsert: %v", err)
	}
	got, err := store.Get(ctx, typ, id, record.FetchOptions{RetrieveTags: true})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0].PlainValue != "revoked" {
		t.Fatalf("tags after upsert = %+v, want single revoked tag", got.Tags)
	}
	if err := store.DeleteTags(ctx, typ, id, []record.TagName{{Kind: record.TagPlaintext, Name: []byte("status")}}); err != nil {
		t.Fatalf("DeleteTags: %v", err)
	}
	got, err = store.Get(ctx, typ, id, record.FetchOptions{RetrieveTags: true})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("tags after delete = %+v, want none", got.Tags)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	b := backend{}
	if err := b.CreateStorage(ctx, "wallet4", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	store := openTestWallet(t, srv.URL, "wallet4", "")
	typ := []byte("credential")
	for i, issuer := range []string{"acme", "acme", "globex"} {
		id := []byte{byte('a' + i)}
		value := record.EncryptedValue{Key: make([]byte, 32), Data: []byte{byte(i)}}
		tags := []record.Tag{record.PlaintextTag([]byte("issuer"), issuer)}
		if err := store.Add(ctx, typ, id, value, tags); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	query := tagquery.Eq([]byte("~issuer"), []byte("acme"))
	it, err := store.Search(ctx, typ, query, record.DefaultSearchOptions())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	defer it.Close()
	count := 0
	for it.Next(ctx) {
		count++
	}
	if count != 2 {
		t.Fatalf("Search matched %d, want 2", count)
	}
}

func TestGetAllUnsupported(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	b := backend{}
	if err := b.CreateStorage(ctx, "wallet5", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	store := openTestWallet(t, srv.URL, "wallet5", "")
	if _, err := store.GetAll(ctx, record.DefaultFetchOptions()); storage.KindOf(err) != storage.InvalidStructure {
		t.Fatalf("GetAll kind = %v, want InvalidStructure", storage.KindOf(err))
	}
}

func TestVirtualWalletRootFallback(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	b := backend{}
	if err := b.CreateStorage(ctx, "wallet6", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	root := openTestWallet(t, srv.URL, "wallet6", "")
	typ, id := []byte("credential"), []byte("shared")
	value := record.EncryptedValue{Key: make([]byte, 32), Data: []byte("shared-secret")}
	if err := root.Add(ctx, typ, id, value, nil); err != nil {
		t.Fatalf("root Add: %v", err)
	}

	subject := openTestWallet(t, srv.URL, "wallet6", "subject1")
	got, err := subject.Get(ctx, typ, id, record.FetchOptions{RetrieveValue: true})
	if err != nil {
		t.Fatalf("subject Get with root fallback: %v", err)
	}
	if !got.Value.Equal(value) {
		t.Errorf("Get via root fallback = %+v, want %+v", got.Value, value)
	}

	if err := subject.Add(ctx, typ, []byte("subject-only"), value, nil); err != nil {
		t.Fatalf("subject Add own record: %v", err)
	}
	if _, err := root.Get(ctx, typ, []byte("subject-only"), record.DefaultFetchOptions()); storage.KindOf(err) != storage.ItemNotFound {
		t.Fatalf("root should not see subject-only record via fallback, kind = %v", storage.KindOf(err))
	}
}

func TestKeyPartsRejectDelimiter(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	b := backend{}
	if err := b.CreateStorage(ctx, "wallet7", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	store := openTestWallet(t, srv.URL, "wallet7", "")
	err := store.Add(ctx, []byte("bad::type"), []byte("id"), record.EncryptedValue{Key: make([]byte, 32)}, nil)
	if storage.KindOf(err) != storage.InvalidStructure {
		t.Fatalf("Add with delimiter in type kind = %v, want InvalidStructure", storage.KindOf(err))
	}
}

func TestFreshnessExpiry(t *testing.T) {
	srv, fake := newTestServer(t)
	ctx := context.Background()
	b := backend{}
	if err := b.CreateStorage(ctx, "wallet8", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}

	cfg, _ := json.Marshal(Config{Endpoint: srv.URL, FreshnessSeconds: 5, TimeoutSeconds: 5})
	store, err := b.OpenStorage(ctx, "wallet8", cfg, testCreds(""))
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	defer store.Close()

	env := envelope{Value: record.EncryptedValue{Key: make([]byte, 32), Data: []byte("stale")}}
	encoded, err := encodeEnvelope(env)
	if err != nil {
		t.Fatalf("encodeEnvelope: %v", err)
	}
	stale := &fakeItem{
		WalletName: "wallet8",
		ItemType:   "credential",
		ItemID:     "old",
		ItemValue:  encoded,
		Created:    time.Now().UTC().Add(-time.Hour).Format(time.RFC3339Nano),
	}
	fake.put(stale)

	_, err = store.Get(ctx, []byte("credential"), []byte("old"), record.DefaultFetchOptions())
	if storage.KindOf(err) != storage.ItemNotFound {
		t.Fatalf("Get of expired record kind = %v, want ItemNotFound", storage.KindOf(err))
	}
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		srv, _ := newTestServer(t)
		b := backend{}
		if err := b.CreateStorage(context.Background(), "wallet_contract", testConfig(srv.URL, 0), testCreds(""), nil); err != nil {
			t.Fatalf("CreateStorage: %v", err)
		}
		return openTestWallet(t, srv.URL, "wallet_contract", "")
	})
}
