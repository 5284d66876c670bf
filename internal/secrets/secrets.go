// Package secrets seals integration credentials before they reach the
// integrations table, so a database dump does not leak aggregator access URLs.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// sealedPrefix marks a sealed value; anything without it passes through Open
// unchanged, so ledgers created before sealing keep working.
const sealedPrefix = "sealed:v1:"

// ErrSealTampered indicates the ciphertext failed authentication.
var ErrSealTampered = errors.New("secrets: sealed value failed to open")

// Box seals and opens values with a passphrase-derived key.
type Box struct {
	key [32]byte
}

// NewBox derives the secretbox key from the passphrase. An empty passphrase
// is allowed; it still seals, it just offers no secrecy beyond obscurity.
func NewBox(passphrase string) *Box {
	return &Box{key: sha256.Sum256([]byte(passphrase))}
}

// Seal encrypts the value with a random nonce and authenticates it.
func (b *Box) Seal(value string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &b.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Plain values are returned unchanged.
func (b *Box) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("secrets: decode sealed value: %w", err)
	}
	if len(raw) < 24 {
		return "", ErrSealTampered
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", ErrSealTampered
	}
	return string(plain), nil
}
