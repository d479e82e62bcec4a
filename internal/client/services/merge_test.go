package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remote(e models.Entry) models.DecryptedEntry {
	return models.DecryptedEntry{Entry: e}
}

func remoteTombstone(id string, at int64) models.DecryptedEntry {
	return models.DecryptedEntry{Entry: models.Entry{ID: id, UpdatedAt: at}, IsDeleted: true}
}

func TestMergeRemoteEntries_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(entry("A", 1000))
	m := NewMergeEngine(store, nil)

	newer := entry("A", 2000)
	newer.Tags = []string{"remote"}
	res, err := m.MergeRemoteEntries(ctx, []models.DecryptedEntry{remote(newer)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []string{"A"}, res.Changed)
	got, _ := store.get("A")
	assert.Equal(t, int64(2000), got.UpdatedAt)
	assert.Equal(t, []string{"remote"}, got.Tags)

	res, err = m.MergeRemoteEntries(ctx, []models.DecryptedEntry{remote(entry("A", 500))})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	got, _ = store.get("A")
	assert.Equal(t, int64(2000), got.UpdatedAt)

	res, err = m.MergeRemoteEntries(ctx, []models.DecryptedEntry{remoteTombstone("A", 3000)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []string{"A"}, res.Deleted)
	_, ok := store.get("A")
	assert.False(t, ok)
}

func TestMergeRemoteEntries_InsertsUnknown(t *testing.T) {
	store := newMemStore()
	m := NewMergeEngine(store, nil)

	res, err := m.MergeRemoteEntries(context.Background(), []models.DecryptedEntry{remote(entry("B", 10))})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	_, ok := store.get("B")
	assert.True(t, ok)
}

func TestMergeRemoteEntries_TombstoneForAbsentIsNoop(t *testing.T) {
	store := newMemStore()
	m := NewMergeEngine(store, nil)

	res, err := m.MergeRemoteEntries(context.Background(), []models.DecryptedEntry{remoteTombstone("ghost", 99)})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Deleted)
	assert.Equal(t, 0, store.writes)
}

func TestMergeRemoteEntries_OlderTombstoneLoses(t *testing.T) {
	store := newMemStore(entry("A", 1000))
	m := NewMergeEngine(store, nil)

	res, err := m.MergeRemoteEntries(context.Background(), []models.DecryptedEntry{remoteTombstone("A", 1000)})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	_, ok := store.get("A")
	assert.True(t, ok)
}

func TestMergeRemoteEntries_Idempotent(t *testing.T) {
	store := newMemStore()
	m := NewMergeEngine(store, nil)
	batch := []models.DecryptedEntry{remote(entry("A", 5)), remote(entry("B", 6))}

	first, err := m.MergeRemoteEntries(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count)

	writes := store.writes
	second, err := m.MergeRemoteEntries(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Count)
	assert.Equal(t, writes, store.writes)
}

func TestMergeRemoteEntries_InOrderWithinBatch(t *testing.T) {
	store := newMemStore()
	m := NewMergeEngine(store, nil)

	res, err := m.MergeRemoteEntries(context.Background(), []models.DecryptedEntry{
		remote(entry("A", 5)),
		remote(entry("A", 7)),
		remote(entry("A", 6)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	got, _ := store.get("A")
	assert.Equal(t, int64(7), got.UpdatedAt)
}

func TestMergeRemoteEntries_StoreErrorKeepsPrefix(t *testing.T) {
	store := newMemStore()
	store.failOn = "B"
	m := NewMergeEngine(store, nil)

	res, err := m.MergeRemoteEntries(context.Background(), []models.DecryptedEntry{
		remote(entry("A", 1)),
		remote(entry("B", 1)),
		remote(entry("C", 1)),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge B")
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []string{"A"}, res.Changed)
	_, ok := store.get("C")
	assert.False(t, ok)
}
