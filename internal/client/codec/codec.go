// Package codec converts notebook entries to and from the encrypted
// envelopes stored on the relay.
package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/cryptox"
	"github.com/dmitrijs2005/workledger/internal/logging"
)

// Codec encrypts and decrypts entries under a session key.
type Codec struct {
	logger logging.Logger
	rand   io.Reader
}

// New returns a Codec. A nil rand uses crypto/rand for nonces.
func New(logger logging.Logger, rand io.Reader) *Codec {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Codec{logger: logger, rand: rand}
}

// EncryptEntry seals the entry payload. The integrity hash is computed over
// the canonical payload before encryption; archived state stays in clear.
func (c *Codec) EncryptEntry(key *cryptox.Key, e models.Entry) (models.SyncEntry, error) {
	payload := models.PayloadOf(e)

	hash, err := cryptox.ComputeIntegrityHash(payload)
	if err != nil {
		return models.SyncEntry{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return models.SyncEntry{}, fmt.Errorf("entry %s: failed to marshal payload: %w", e.ID, err)
	}

	ciphertext, err := cryptox.Encrypt(key, string(plaintext), c.rand)
	if err != nil {
		return models.SyncEntry{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}

	return models.SyncEntry{
		ID:               e.ID,
		UpdatedAt:        e.UpdatedAt,
		IsArchived:       e.IsArchived,
		EncryptedPayload: ciphertext,
		IntegrityHash:    hash,
	}, nil
}

// DecryptEntry opens an envelope. Tombstones short-circuit without touching
// the payload. A failed AEAD open is ErrDecryptionFailed and a payload that
// is not valid JSON is ErrMalformedEnvelope. An integrity hash mismatch is
// only logged and flagged on the result.
func (c *Codec) DecryptEntry(ctx context.Context, key *cryptox.Key, se models.SyncEntry) (models.DecryptedEntry, error) {
	if se.IsDeleted {
		return models.DecryptedEntry{
			Entry:     models.Entry{ID: se.ID, UpdatedAt: se.UpdatedAt},
			IsDeleted: true,
			ServerSeq: se.ServerSeq,
		}, nil
	}

	plaintext, err := cryptox.Decrypt(key, se.EncryptedPayload)
	if err != nil {
		return models.DecryptedEntry{}, fmt.Errorf("entry %s: %w", se.ID, err)
	}

	var payload models.Payload
	if err := json.Unmarshal([]byte(plaintext), &payload); err != nil {
		return models.DecryptedEntry{}, fmt.Errorf("entry %s: %w: %v", se.ID, common.ErrMalformedEnvelope, err)
	}

	out := models.DecryptedEntry{
		Entry:     models.EntryFromPayload(se.ID, payload),
		ServerSeq: se.ServerSeq,
	}

	ok, err := cryptox.VerifyIntegrityHash(json.RawMessage(plaintext), se.IntegrityHash)
	if err != nil {
		c.logger.Warn(ctx, "integrity hash not computable", "entry", se.ID, "err", err)
	}
	if !ok {
		out.IntegrityMismatch = true
		c.logger.Warn(ctx, "integrity hash mismatch", "entry", se.ID, "serverSeq", se.ServerSeq)
	}
	return out, nil
}
