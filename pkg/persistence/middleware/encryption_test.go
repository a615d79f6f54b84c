package middleware_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/memory"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/persistence/middleware"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestEncrypted_Contract(t *testing.T) {
	store, err := middleware.NewEncrypted[domain.Session](memory.NewStore[middleware.Sealed](), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	ports.RunSessionStoreContract(t, store)
}

func TestEncrypted_HidesDraftFromBackend(t *testing.T) {
	backend := memory.NewStore[middleware.Sealed]()
	store, err := middleware.NewEncrypted[domain.Session](backend, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	ctx := context.Background()
	sess := domain.NewSession("chat")
	sess.State = domain.StateAnonymousReason
	sess.Data[domain.FieldReason] = "боюсь последствий"
	require.NoError(t, store.Save(ctx, "chat", sess))

	sealed, err := backend.Load(ctx, "chat")
	require.NoError(t, err)
	assert.NotEmpty(t, sealed.Ciphertext)
	assert.False(t, bytes.Contains(sealed.Ciphertext, []byte("боюсь")))

	loaded, err := store.Load(ctx, "chat")
	require.NoError(t, err)
	assert.Equal(t, "боюсь последствий", loaded.Data.String(domain.FieldReason))
}

func TestEncrypted_KeyRotation(t *testing.T) {
	backend := memory.NewStore[middleware.Sealed]()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	withOld, err := middleware.NewEncrypted[domain.AdminSession](backend, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, withOld.Save(ctx, "admin", &domain.AdminSession{ID: "admin", State: domain.AdminTypingResponse, RecordID: 7}))

	rotated, err := middleware.NewEncrypted[domain.AdminSession](backend, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)

	loaded, err := rotated.Load(ctx, "admin")
	require.NoError(t, err, "fallback key should decrypt")
	assert.Equal(t, int64(7), loaded.RecordID)

	// Saving again re-encrypts with the new key only.
	require.NoError(t, rotated.Save(ctx, "admin", loaded))
	_, err = withOld.Load(ctx, "admin")
	assert.Error(t, err)
}

func TestEncrypted_MissingSessionKeepsSentinel(t *testing.T) {
	store, err := middleware.NewEncrypted[domain.Session](memory.NewStore[middleware.Sealed](), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestNewEncrypted_RejectsBadKeys(t *testing.T) {
	_, err := middleware.NewEncrypted[domain.Session](memory.NewStore[middleware.Sealed](), middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)

	_, err = middleware.NewEncrypted[domain.Session](memory.NewStore[middleware.Sealed](), middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	parsed, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = middleware.ParseKey("not base64!")
	assert.Error(t, err)

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}
