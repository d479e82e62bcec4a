package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/cryptox"
	"github.com/dmitrijs2005/workledger/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, b byte) *cryptox.Key {
	t.Helper()
	k, err := cryptox.NewKey(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return k
}

func sampleEntry(t *testing.T) models.Entry {
	t.Helper()
	var blocks []models.Block
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"b1","type":"heading","props":{"level":2},"content":[{"type":"text","text":"Plan 🚀","styles":{}}],"children":[]},
		{"id":"b2","type":"entryLink","props":{"entryId":"other"},"children":[]}
	]`), &blocks))

	return models.Entry{
		ID:         "e1",
		DayKey:     "2024-05-01",
		CreatedAt:  1714550400000,
		UpdatedAt:  1714553000000,
		Blocks:     blocks,
		IsArchived: true,
		Tags:       []string{"plan", "q2"},
		IsPinned:   true,
		Signifier:  models.SignifierMilestone,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	c := New(nil, nil)
	key := testKey(t, 1)
	e := sampleEntry(t)

	se, err := c.EncryptEntry(key, e)
	require.NoError(t, err)
	assert.Equal(t, e.ID, se.ID)
	assert.Equal(t, e.UpdatedAt, se.UpdatedAt)
	assert.True(t, se.IsArchived)
	assert.False(t, se.IsDeleted)
	assert.NotEmpty(t, se.IntegrityHash)
	assert.NotContains(t, se.EncryptedPayload, "Plan")

	se.ServerSeq = 12
	de, err := c.DecryptEntry(context.Background(), key, se)
	require.NoError(t, err)
	assert.Equal(t, e, de.Entry)
	assert.False(t, de.IsDeleted)
	assert.False(t, de.IntegrityMismatch)
	assert.Equal(t, int64(12), de.ServerSeq)
}

func TestCodec_EmptyCollections(t *testing.T) {
	c := New(nil, nil)
	key := testKey(t, 1)

	se, err := c.EncryptEntry(key, models.Entry{ID: "bare", DayKey: "2024-01-01"})
	require.NoError(t, err)

	de, err := c.DecryptEntry(context.Background(), key, se)
	require.NoError(t, err)
	assert.Equal(t, []models.Block{}, de.Blocks)
	assert.Equal(t, []string{}, de.Tags)
	assert.False(t, de.IntegrityMismatch)
}

func TestCodec_TombstoneSkipsPayload(t *testing.T) {
	c := New(nil, nil)

	de, err := c.DecryptEntry(context.Background(), nil, models.SyncEntry{ID: "gone", UpdatedAt: 3000, IsDeleted: true, ServerSeq: 4})
	require.NoError(t, err)
	assert.True(t, de.IsDeleted)
	assert.Equal(t, "gone", de.ID)
	assert.Equal(t, int64(3000), de.UpdatedAt)
	assert.Empty(t, de.DayKey)
	assert.Empty(t, de.Blocks)
	assert.Empty(t, de.Tags)
}

func TestCodec_WrongKey(t *testing.T) {
	c := New(nil, nil)
	se, err := c.EncryptEntry(testKey(t, 1), sampleEntry(t))
	require.NoError(t, err)

	_, err = c.DecryptEntry(context.Background(), testKey(t, 2), se)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestCodec_TamperedCiphertext(t *testing.T) {
	c := New(nil, nil)
	key := testKey(t, 1)
	se, err := c.EncryptEntry(key, sampleEntry(t))
	require.NoError(t, err)

	b := []byte(se.EncryptedPayload)
	if b[20] == 'A' {
		b[20] = 'B'
	} else {
		b[20] = 'A'
	}
	se.EncryptedPayload = string(b)

	_, err = c.DecryptEntry(context.Background(), key, se)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestCodec_IntegrityMismatchIsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	c := New(logger, nil)
	key := testKey(t, 1)

	se, err := c.EncryptEntry(key, sampleEntry(t))
	require.NoError(t, err)
	se.IntegrityHash = strings.Repeat("0", 64)

	de, err := c.DecryptEntry(context.Background(), key, se)
	require.NoError(t, err)
	assert.True(t, de.IntegrityMismatch)
	assert.Equal(t, "e1", de.ID)
	assert.Contains(t, buf.String(), "integrity hash mismatch")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestCodec_MalformedPayload(t *testing.T) {
	c := New(nil, nil)
	key := testKey(t, 1)

	ct, err := cryptox.Encrypt(key, "not json", nil)
	require.NoError(t, err)

	_, err = c.DecryptEntry(context.Background(), key, models.SyncEntry{ID: "x", EncryptedPayload: ct})
	assert.ErrorIs(t, err, common.ErrMalformedEnvelope)
}

func TestCodec_HashIgnoresBlockKeyOrder(t *testing.T) {
	c := New(nil, nil)
	key := testKey(t, 1)

	var a, b []models.Block
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"paragraph","props":{"x":1,"y":2}}]`), &a))
	require.NoError(t, json.Unmarshal([]byte(`[{"props":{"y":2,"x":1},"type":"paragraph"}]`), &b))

	e := models.Entry{ID: "k", DayKey: "2024-01-01", Blocks: a}
	se1, err := c.EncryptEntry(key, e)
	require.NoError(t, err)
	e.Blocks = b
	se2, err := c.EncryptEntry(key, e)
	require.NoError(t, err)

	assert.Equal(t, se1.IntegrityHash, se2.IntegrityHash)
	assert.NotEqual(t, se1.EncryptedPayload, se2.EncryptedPayload)
}
