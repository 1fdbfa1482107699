package snapshot

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Encryption errors.
var (
	ErrKeyTooShort      = errors.New("snapshot: encryption key too short (minimum 16 bytes)")
	ErrDecryptionFailed = errors.New("snapshot: decryption failed - wrong key or corrupted data")
	ErrMissingKey       = errors.New("snapshot: snapshot is encrypted but no key is configured")
)

const (
	// MinKeyLength is the minimum master key length.
	MinKeyLength = 16

	// hkdfInfo binds derived keys to their purpose.
	hkdfInfo = "tuamail snapshot payload v2"
)

// Cipher seals snapshot payloads with ChaCha20-Poly1305.
//
// The payload key is derived from the configured master key with HKDF-SHA256,
// so the same secret can safely serve other purposes. Sealed output is
// nonce || ciphertext || tag.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a payload key from masterKey.
// A nil cipher and nil error are returned when masterKey is empty.
func NewCipher(masterKey []byte) (*Cipher, error) {
	if len(masterKey) == 0 {
		return nil, nil
	}

	key, err := DeriveSubkey(masterKey, hkdfInfo, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer ZeroKey(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("snapshot: init cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext; additionalData is authenticated but not encrypted.
func (c *Cipher) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("snapshot: generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open decrypts data produced by Seal.
func (c *Cipher) Open(sealed, additionalData []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return nil, ErrDecryptionFailed
	}
	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

// DeriveSubkey derives a subkey from a master key using HKDF.
func DeriveSubkey(masterKey []byte, info string, length int) ([]byte, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("snapshot: derive subkey: %w", err)
	}
	return key, nil
}

// GenerateKey generates a random master key of the specified length.
func GenerateKey(length int) ([]byte, error) {
	if length < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("snapshot: generate key: %w", err)
	}
	return key, nil
}

// ZeroKey zeros a key in memory.
func ZeroKey(key []byte) {
	clear(key)
}
