package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/internal/config"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.db")

	msg, err := migrate(context.Background(), config.StorageConfig{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	assert.Contains(t, msg, "version 2")

	// Running again is a no-op.
	_, err = migrate(context.Background(), config.StorageConfig{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	assert.Equal(t, 2, sqlite.CurrentSchemaVersion)
}

func TestMigrate_MemoryHasNoSchema(t *testing.T) {
	_, err := migrate(context.Background(), config.StorageConfig{Driver: "memory"})
	assert.Error(t, err)
}
