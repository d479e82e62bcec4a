// Package cryptox holds the client-side cryptography of the sync engine:
// sync identities and the credentials derived from them, the AES-GCM
// record cipher, and canonical integrity hashing.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"

	"github.com/dmitrijs2005/workledger/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	identityRandomBytes = 10
	saltSize            = 16

	authDomain   = "workledger:auth:"
	cryptoDomain = "workledger:crypto:"
)

var identityPattern = regexp.MustCompile(`^wl-[0-9a-f]{20}$`)

// GenerateIdentity returns a fresh sync id: the wl- prefix followed by
// 80 bits of randomness from r, hex encoded. A nil r means crypto/rand.
func GenerateIdentity(r io.Reader) (string, error) {
	s, err := common.MakeRandHexString(r, identityRandomBytes)
	if err != nil {
		return "", fmt.Errorf("generate identity: %w", err)
	}
	return common.IdentityPrefix + s, nil
}

// ValidateIdentity reports ErrInvalidIdentity for anything that is not a
// well-formed sync id.
func ValidateIdentity(identity string) error {
	if !identityPattern.MatchString(identity) {
		return fmt.Errorf("%w: %q", common.ErrInvalidIdentity, identity)
	}
	return nil
}

// ComputeAuthToken is the bearer token the relay partitions records by.
func ComputeAuthToken(identity string) string {
	return domainDigest(authDomain, identity)
}

// ComputeCryptoSeed is the secret input to DeriveKey. It never leaves the client.
func ComputeCryptoSeed(identity string) string {
	return domainDigest(cryptoDomain, identity)
}

func domainDigest(domain, identity string) string {
	sum := sha256.Sum256([]byte(domain + identity))
	return hex.EncodeToString(sum[:])
}

// NewSalt returns a random key-derivation salt, base64 encoded.
func NewSalt(r io.Reader) (string, error) {
	b, err := common.ReadRandBytes(r, saltSize)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DeriveKey stretches the crypto seed with the salt into a 256-bit AES-GCM
// key. The result is deterministic for identical (seed, salt).
func DeriveKey(seed string, salt string) (*Key, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	if len(rawSalt) == 0 {
		return nil, fmt.Errorf("empty salt")
	}
	raw := argon2.IDKey([]byte(seed), rawSalt, 1, 64*1024, 4, 32)
	return NewKey(raw)
}

// DeriveIdentityKey validates the identity and derives its key in one step.
func DeriveIdentityKey(identity string, salt string) (*Key, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	return DeriveKey(ComputeCryptoSeed(identity), salt)
}
