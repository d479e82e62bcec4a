package common

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// MakeRandHexString reads size bytes from r and returns them hex-encoded,
// so the result is 2*size characters long. A nil reader means crypto/rand.
func MakeRandHexString(r io.Reader, size int) (string, error) {
	b, err := ReadRandBytes(r, size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ReadRandBytes fills a new slice of length size from r (crypto/rand if nil).
func ReadRandBytes(r io.Reader, size int) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
