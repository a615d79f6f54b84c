package attachments_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/attachments"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringFetcher(content string) attachments.Fetcher {
	return attachments.FetcherFunc(func(context.Context, string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	})
}

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	store := attachments.New(dir, stringFetcher("%PDF-1.7"))

	path, err := store.Save(context.Background(), domain.Attachment{Ref: "file-id", Kind: domain.KindPDF, FileName: "../../etc/report.pdf"})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_report.pdf"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestStore_NamesByKind(t *testing.T) {
	store := attachments.New(t.TempDir(), stringFetcher("img"))

	path, err := store.Save(context.Background(), domain.Attachment{Ref: "photo", Kind: domain.KindJPEG})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_jpeg.jpg"), path)

	path, err = store.Save(context.Background(), domain.Attachment{Ref: "x", Kind: domain.KindPNG, FileName: "scan.bin"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_scan.png"), path)
}

func TestStore_Errors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := attachments.New(dir, stringFetcher("x")).Save(ctx, domain.Attachment{Kind: "zip"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)

	_, err = attachments.New(dir, stringFetcher("123456"), attachments.WithMaxBytes(5)).
		Save(ctx, domain.Attachment{Kind: domain.KindPDF})
	assert.ErrorIs(t, err, attachments.ErrTooLarge)

	boom := errors.New("network")
	failing := attachments.FetcherFunc(func(context.Context, string) (io.ReadCloser, error) { return nil, boom })
	_, err = attachments.New(dir, failing).Save(ctx, domain.Attachment{Kind: domain.KindPDF})
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed saves must not leave files behind")
}

func TestLocalFetcher(t *testing.T) {
	src := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, os.WriteFile(src, []byte("docx"), 0o644))

	path, err := attachments.New(t.TempDir(), attachments.LocalFetcher{}).
		Save(context.Background(), domain.Attachment{Ref: src, Kind: domain.KindDOCX, FileName: "doc.docx"})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "docx", string(data))
}
