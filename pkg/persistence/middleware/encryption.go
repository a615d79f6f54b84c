// Package middleware wraps session stores with cross-cutting behavior.
// Drafts hold names, positions and reasons for anonymity, so deployments
// that persist sessions outside the process can keep them encrypted at rest.
package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
)

// KeySize is the AES-256 key length.
const KeySize = 32

// ErrKeySize is returned for keys that are not KeySize bytes long.
var ErrKeySize = fmt.Errorf("encryption key must be %d bytes (AES-256)", KeySize)

// Sealed is the at-rest form of an encrypted snapshot. The backend only
// ever sees the ciphertext.
type Sealed struct {
	Ciphertext []byte `json:"ciphertext"`
}

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts every save.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt
	// a snapshot, so keys can be rotated without dropping sessions.
	FallbackKeys [][]byte
}

// Encrypted is a ports.SessionStore for T that seals snapshots with AES-GCM
// before handing them to a store of Sealed values.
type Encrypted[T any] struct {
	next   ports.SessionStore[Sealed]
	config EncryptionConfig
}

// NewEncrypted wraps next. Every key must be KeySize bytes.
func NewEncrypted[T any](next ports.SessionStore[Sealed], config EncryptionConfig) (*Encrypted[T], error) {
	if len(config.ActiveKey) != KeySize {
		return nil, ErrKeySize
	}
	for _, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, ErrKeySize
		}
	}
	return &Encrypted[T]{next: next, config: config}, nil
}

// ParseKey decodes a base64 key as found in configuration.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return key, nil
}

// Save encrypts v and stores the sealed envelope.
func (m *Encrypted[T]) Save(ctx context.Context, sessionID string, v *T) error {
	plainText, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}
	return m.next.Save(ctx, sessionID, &Sealed{Ciphertext: ciphertext})
}

// Load decrypts the stored envelope, trying the active key first.
func (m *Encrypted[T]) Load(ctx context.Context, sessionID string) (*T, error) {
	sealed, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sealed.Ciphertext) == 0 {
		return nil, errors.New("session is missing encrypted data envelope")
	}

	plainText, err := decryptWithRotation(sealed.Ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}

	var v T
	if err := json.Unmarshal(plainText, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted session: %w", err)
	}
	return &v, nil
}

// Delete removes the envelope.
func (m *Encrypted[T]) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

// List returns the ids of stored envelopes.
func (m *Encrypted[T]) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
