// Package storetest is a shared contract test for pkg/storage.Store
// implementations: one set of assertions against the storage contract
// (spec §4.3/§5/§8) that every backend's own _test.go exercises against
// its own setup/teardown, the way the teacher's table-driven suites
// (pkg/scheduler/scheduler_test.go) assert behavior with
// github.com/stretchr/testify rather than hand-rolled comparisons.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/storage"
	"github.com/cuemby/walletstore/pkg/tagquery"
)

// NewStore opens a fresh, empty Store scoped to one subtest. Backends
// supply this as a closure over their own CreateStorage/OpenStorage
// plumbing (temp dir, fake server, env-gated Postgres connection); t is
// the subtest so implementations can t.Skip or t.Cleanup as needed.
type NewStore func(t *testing.T) storage.Store

// Run exercises the operations and invariants every Store must satisfy
// regardless of backend, calling newStore once per subtest so each case
// starts from an empty wallet.
func Run(t *testing.T, newStore NewStore) {
	t.Helper()
	t.Run("AddGetRoundTrip", func(t *testing.T) { testAddGetRoundTrip(t, newStore) })
	t.Run("AddDuplicateFails", func(t *testing.T) { testAddDuplicateFails(t, newStore) })
	t.Run("UpdateReplacesValue", func(t *testing.T) { testUpdateReplacesValue(t, newStore) })
	t.Run("UpdateMissingFails", func(t *testing.T) { testUpdateMissingFails(t, newStore) })
	t.Run("TagLifecycle", func(t *testing.T) { testTagLifecycle(t, newStore) })
	t.Run("DeleteRemovesRecord", func(t *testing.T) { testDeleteRemovesRecord(t, newStore) })
	t.Run("SearchByPlaintextTag", func(t *testing.T) { testSearchByPlaintextTag(t, newStore) })
	t.Run("MetadataRoundTrip", func(t *testing.T) { testMetadataRoundTrip(t, newStore) })
}

func testAddGetRoundTrip(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	typ, id := []byte("credential"), []byte("rec-1")
	value := record.EncryptedValue{Key: make([]byte, record.KeyLen), Data: []byte("ciphertext")}
	tags := []record.Tag{record.PlaintextTag([]byte("issuer"), "acme")}

	require.NoError(t, s.Add(ctx, typ, id, value, tags))

	got, err := s.Get(ctx, typ, id, record.FetchOptions{RetrieveValue: true, RetrieveTags: true})
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(value), "value round-trip mismatch")
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "acme", got.Tags[0].PlainValue)
}

func testAddDuplicateFails(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	typ, id := []byte("credential"), []byte("dup")
	value := record.EncryptedValue{Key: make([]byte, record.KeyLen), Data: []byte("v1")}

	require.NoError(t, s.Add(ctx, typ, id, value, nil))
	err := s.Add(ctx, typ, id, value, nil)
	assert.Equal(t, storage.ItemAlreadyExists, storage.KindOf(err))
}

func testUpdateReplacesValue(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	typ, id := []byte("credential"), []byte("upd")
	v1 := record.EncryptedValue{Key: make([]byte, record.KeyLen), Data: []byte("v1")}
	v2 := record.EncryptedValue{Key: make([]byte, record.KeyLen), Data: []byte("v2")}

	require.NoError(t, s.Add(ctx, typ, id, v1, nil))
	require.NoError(t, s.Update(ctx, typ, id, v2))

	got, err := s.Get(ctx, typ, id, record.FetchOptions{RetrieveValue: true})
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(v2))
}

func testUpdateMissingFails(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	err := s.Update(ctx, []byte("credential"), []byte("nope"), record.EncryptedValue{Key: make([]byte, record.KeyLen)})
	assert.Equal(t, storage.ItemNotFound, storage.KindOf(err))
}

func testTagLifecycle(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	typ, id := []byte("credential"), []byte("tagged")
	value := record.EncryptedValue{Key: make([]byte, record.KeyLen), Data: []byte("v")}
	require.NoError(t, s.Add(ctx, typ, id, value, []record.Tag{record.PlaintextTag([]byte("env"), "prod")}))

	require.NoError(t, s.AddTags(ctx, typ, id, []record.Tag{record.PlaintextTag([]byte("owner"), "alice")}))
	got, err := s.Get(ctx, typ, id, record.FetchOptions{RetrieveTags: true})
	require.NoError(t, err)
	assert.Len(t, got.Tags, 2)

	require.NoError(t, s.UpdateTags(ctx, typ, id, []record.Tag{record.PlaintextTag([]byte("env"), "staging")}))
	got, err = s.Get(ctx, typ, id, record.FetchOptions{RetrieveTags: true})
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "staging", got.Tags[0].PlainValue)

	require.NoError(t, s.DeleteTags(ctx, typ, id, []record.TagName{{Kind: record.TagPlaintext, Name: []byte("env")}}))
	got, err = s.Get(ctx, typ, id, record.FetchOptions{RetrieveTags: true})
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func testDeleteRemovesRecord(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	typ, id := []byte("credential"), []byte("gone")
	value := record.EncryptedValue{Key: make([]byte, record.KeyLen), Data: []byte("v")}
	require.NoError(t, s.Add(ctx, typ, id, value, nil))
	require.NoError(t, s.Delete(ctx, typ, id))

	_, err := s.Get(ctx, typ, id, record.DefaultFetchOptions())
	assert.Equal(t, storage.ItemNotFound, storage.KindOf(err))
}

func testSearchByPlaintextTag(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	typ := []byte("credential")
	value := record.EncryptedValue{Key: make([]byte, record.KeyLen), Data: []byte("v")}
	require.NoError(t, s.Add(ctx, typ, []byte("match"), value, []record.Tag{record.PlaintextTag([]byte("issuer"), "acme")}))
	require.NoError(t, s.Add(ctx, typ, []byte("nomatch"), value, []record.Tag{record.PlaintextTag([]byte("issuer"), "other")}))

	query := tagquery.Atom{Name: []byte("~issuer"), Op: tagquery.OpEq, Value: []byte("acme")}
	it, err := s.Search(ctx, typ, query, record.DefaultSearchOptions())
	require.NoError(t, err)
	defer it.Close()

	var ids [][]byte
	for it.Next(ctx) {
		ids = append(ids, it.Record().ID)
	}
	require.NoError(t, it.Err())
	require.Len(t, ids, 1)
	assert.Equal(t, []byte("match"), ids[0])
}

func testMetadataRoundTrip(t *testing.T, newStore NewStore) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SetStorageMetadata(ctx, []byte("new-metadata")))
	got, err := s.GetStorageMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-metadata"), got)
}
