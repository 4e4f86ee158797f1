package hashtree

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length in bytes of a leaf encryption key.
const KeySize = chacha20poly1305.KeySize

// SealLeaf encrypts file content with XChaCha20-Poly1305. The random nonce
// is prepended to the ciphertext. The writing side of the tree uses this
// before content-addressing an encrypted leaf.
func SealLeaf(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("seal leaf: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal leaf: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenLeaf decrypts a nonce-prefixed leaf produced by SealLeaf.
func OpenLeaf(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("open leaf: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("open leaf: sealed data too short: %d", len(sealed))
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open leaf: %w", err)
	}
	return plaintext, nil
}
