package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/dmitrijs2005/workledger/internal/common"
)

// Key is a 256-bit AES-GCM key held in memory for one session.
type Key struct {
	raw  []byte
	aead cipher.AEAD
}

// NewKey wraps a 32-byte key. The slice is retained; Wipe zeroes it.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Key{raw: raw, aead: aesgcm}, nil
}

// Wipe zeroes the key material. The key must not be used afterwards.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	common.WipeByteArray(k.raw)
	k.aead = nil
}

// Encrypt seals plaintext under key with a fresh random nonce read from r
// (crypto/rand if nil) and returns base64(nonce || ciphertext).
func Encrypt(key *Key, plaintext string, r io.Reader) (string, error) {
	if key == nil || key.aead == nil {
		return "", fmt.Errorf("encrypt: key is not available")
	}

	nonce, err := common.ReadRandBytes(r, key.aead.NonceSize())
	if err != nil {
		return "", fmt.Errorf("encrypt: nonce: %w", err)
	}

	sealed := key.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure, including a wrong key or a
// tampered ciphertext, is reported as ErrDecryptionFailed.
func Decrypt(key *Key, ciphertext string) (string, error) {
	if key == nil || key.aead == nil {
		return "", fmt.Errorf("%w: key is not available", common.ErrDecryptionFailed)
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", common.ErrDecryptionFailed, err)
	}

	ns := key.aead.NonceSize()
	if len(data) < ns+key.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", common.ErrDecryptionFailed)
	}

	plaintext, err := key.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}
