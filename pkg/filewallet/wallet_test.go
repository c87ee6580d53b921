package filewallet

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/storage"
	"github.com/cuemby/walletstore/pkg/storage/storetest"
	"github.com/cuemby/walletstore/pkg/tagquery"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func openTestWallet(t *testing.T) storage.Store {
	t.Helper()
	dir := t.TempDir()
	cfg, _ := json.Marshal(Config{DataDir: dir})
	creds, _ := json.Marshal(Credentials{Key: testKey()})

	b := backend{}
	if err := b.CreateStorage(context.Background(), "wallet1", cfg, creds, []byte("seed")); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	store, err := b.OpenStorage(context.Background(), "wallet1", cfg, creds)
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateStorageTwiceFails(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := json.Marshal(Config{DataDir: dir})
	creds, _ := json.Marshal(Credentials{Key: testKey()})
	b := backend{}
	if err := b.CreateStorage(context.Background(), "dup", cfg, creds, nil); err != nil {
		t.Fatalf("first CreateStorage: %v", err)
	}
	err := b.CreateStorage(context.Background(), "dup", cfg, creds, nil)
	if storage.KindOf(err) != storage.AlreadyExists {
		t.Fatalf("second CreateStorage kind = %v, want AlreadyExists", storage.KindOf(err))
	}
}

func TestOpenStorageMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := json.Marshal(Config{DataDir: dir})
	creds, _ := json.Marshal(Credentials{Key: testKey()})
	b := backend{}
	_, err := b.OpenStorage(context.Background(), "nope", cfg, creds)
	if storage.KindOf(err) != storage.NotFound {
		t.Fatalf("OpenStorage missing kind = %v, want NotFound", storage.KindOf(err))
	}
}

func TestOpenStorageWrongKey(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := json.Marshal(Config{DataDir: dir})
	creds, _ := json.Marshal(Credentials{Key: testKey()})
	b := backend{}
	if err := b.CreateStorage(context.Background(), "w", cfg, creds, []byte("seed")); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}

	wrongKey := make([]byte, 32)
	wrongKey[0] = 0xff
	wrongCreds, _ := json.Marshal(Credentials{Key: wrongKey})
	_, err := b.OpenStorage(context.Background(), "w", cfg, wrongCreds)
	if storage.KindOf(err) != storage.AccessFailed {
		t.Fatalf("OpenStorage wrong key kind = %v, want AccessFailed", storage.KindOf(err))
	}
}

func TestAddGetUpdateDeleteRecord(t *testing.T) {
	store := openTestWallet(t)
	ctx := context.Background()

	typ := []byte("credential")
	id := []byte("rec-1")
	value := record.EncryptedValue{Key: bytes.Repeat([]byte{1}, 32), Data: []byte("ciphertext-v1")}
	tags := []record.Tag{
		record.PlaintextTag([]byte("issuer"), "acme"),
		record.EncryptedTag([]byte("schema"), []byte("enc-value")),
	}

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
	if len(got.Tags) != 2 {
		t.Errorf("Get tags = %d, want 2", len(got.Tags))
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
	store := openTestWallet(t)
	ctx := context.Background()
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

	if err := store.UpdateTags(ctx, typ, id, []record.Tag{record.PlaintextTag([]byte("status"), "active")}); err != nil {
		t.Fatalf("UpdateTags: %v", err)
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

func TestSearchAndGetAll(t *testing.T) {
	store := openTestWallet(t)
	ctx := context.Background()
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
	if err := it.Err(); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if count != 2 {
		t.Fatalf("Search matched %d, want 2", count)
	}

	all, err := store.GetAll(ctx, record.DefaultFetchOptions())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	defer all.Close()
	total := 0
	for all.Next(ctx) {
		total++
	}
	if total != 3 {
		t.Fatalf("GetAll matched %d, want 3", total)
	}
}

func TestStorageMetadataRoundtrip(t *testing.T) {
	store := openTestWallet(t)
	ctx := context.Background()

	meta, err := store.GetStorageMetadata(ctx)
	if err != nil {
		t.Fatalf("GetStorageMetadata: %v", err)
	}
	if string(meta) != "seed" {
		t.Fatalf("metadata = %q, want %q", meta, "seed")
	}
	if err := store.SetStorageMetadata(ctx, []byte("updated")); err != nil {
		t.Fatalf("SetStorageMetadata: %v", err)
	}
	meta, err = store.GetStorageMetadata(ctx)
	if err != nil {
		t.Fatalf("GetStorageMetadata after set: %v", err)
	}
	if string(meta) != "updated" {
		t.Fatalf("metadata after set = %q, want %q", meta, "updated")
	}
}

func TestDeleteStorageRemovesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := json.Marshal(Config{DataDir: dir})
	creds, _ := json.Marshal(Credentials{Key: testKey()})
	b := backend{}
	if err := b.CreateStorage(context.Background(), "del", cfg, creds, nil); err != nil {
		t.Fatalf("CreateStorage: %v", err)
	}
	if err := b.DeleteStorage(context.Background(), "del", cfg, creds); err != nil {
		t.Fatalf("DeleteStorage: %v", err)
	}
	if _, err := b.OpenStorage(context.Background(), "del", cfg, creds); storage.KindOf(err) != storage.NotFound {
		t.Fatalf("OpenStorage after delete kind = %v, want NotFound", storage.KindOf(err))
	}
	if err := b.DeleteStorage(context.Background(), "del", cfg, creds); storage.KindOf(err) != storage.NotFound {
		t.Fatalf("second DeleteStorage kind = %v, want NotFound", storage.KindOf(err))
	}
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return openTestWallet(t)
	})
}
