package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "uploads")

	d, err := Open(root)
	require.NoError(t, err)

	info, err := os.Stat(d.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveRemove(t *testing.T) {
	ctx := context.Background()
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	n, err := d.Save(ctx, "1-cat.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	data, err := os.ReadFile(d.Path("1-cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = d.Save(ctx, "1-cat.png", strings.NewReader("again"))
	require.Error(t, err, "existing blobs must not be overwritten")

	require.NoError(t, d.Remove("1-cat.png"))
	err = d.Remove("1-cat.png")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSave_RejectsTraversal(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../x.png", "a/b.png", `a\b.png`} {
		_, err := d.Save(context.Background(), name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	assert.ErrorIs(t, d.Remove("../etc/passwd"), ErrInvalidName)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestSave_RemovesPartialBlob(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = d.Save(context.Background(), "broken.jpg", failingReader{})
	require.Error(t, err)

	_, err = os.Stat(d.Path("broken.jpg"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(d.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file must be cleaned up")
}

func TestSave_LeavesOnlyCommittedBlob(t *testing.T) {
	ctx := context.Background()
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = d.Save(ctx, "1-cat.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	_, err = d.Save(ctx, "1-cat.png", strings.NewReader("again"))
	require.Error(t, err)

	entries, err := os.ReadDir(d.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1-cat.png", entries[0].Name())

	data, err := os.ReadFile(d.Path("1-cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSave_CanceledContext(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Save(ctx, "late.jpg", strings.NewReader("x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWritable(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, d.Writable(context.Background()))

	entries, err := os.ReadDir(d.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be cleaned up")
}

func TestHandler(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = d.Save(context.Background(), "a.png", strings.NewReader("img"))
	require.NoError(t, err)

	h := http.StripPrefix("/uploads/", d.Handler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "img", w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(d.Root(), ".tmp-1"), []byte("partial"), 0o600))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/.tmp-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
