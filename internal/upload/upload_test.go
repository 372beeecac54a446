package upload_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/blob"
	"github.com/xenking/storefront/internal/upload"
	"github.com/xenking/storefront/internal/upload/uploadtest"
)

var productPolicy = upload.Policy{Field: "images", MaxBytes: 1 << 20, MaxFiles: 10}

func parse(t *testing.T, req *http.Request, p upload.Policy) (*upload.Form, error) {
	t.Helper()
	form, err := upload.Parse(httptest.NewRecorder(), req, p)
	if form != nil {
		t.Cleanup(func() { _ = form.Close() })
	}
	return form, err
}

func TestParse_AcceptsImages(t *testing.T) {
	req := uploadtest.Request(t, http.MethodPost, "/", uploadtest.Fields{{"name", "Lamp"}},
		uploadtest.PNG("images", "a.png"),
		uploadtest.JPEG("images", "b.jpg"),
		uploadtest.JPEG("images", "c.JPEG"),
	)

	form, err := parse(t, req, productPolicy)
	require.NoError(t, err)
	require.Len(t, form.Files, 3)
	assert.Equal(t, "a.png", form.Files[0].Filename)
	assert.Equal(t, "Lamp", form.Value("name"))
	assert.True(t, form.Has("name"))
	assert.False(t, form.Has("variant"))
}

func TestParse_RejectsDisallowedFiles(t *testing.T) {
	tests := []struct {
		name string
		file uploadtest.File
	}{
		{"gif extension", uploadtest.File{Field: "images", Name: "anim.gif", ContentType: "image/gif", Data: []byte("GIF89a")}},
		{"png name but gif type", uploadtest.File{Field: "images", Name: "fake.png", ContentType: "image/gif", Data: []byte("GIF89a")}},
		{"jpeg type but exe name", uploadtest.File{Field: "images", Name: "run.exe", ContentType: "image/jpeg", Data: []byte("MZ")}},
		{"no content type", uploadtest.File{Field: "images", Name: "a.png", Data: []byte("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadtest.Request(t, http.MethodPost, "/", nil,
				uploadtest.PNG("images", "ok.png"),
				tt.file,
			)
			_, err := parse(t, req, productPolicy)
			require.ErrorIs(t, err, upload.ErrUnsupportedType)
		})
	}
}

func TestParse_TooLarge(t *testing.T) {
	big := uploadtest.PNG("image", "big.png")
	big.Data = bytes.Repeat([]byte{0xAB}, 2<<20)
	req := uploadtest.Request(t, http.MethodPost, "/", nil, big)

	_, err := parse(t, req, upload.Policy{Field: "image", MaxBytes: 1 << 20})
	require.ErrorIs(t, err, upload.ErrTooLarge)
	assert.Contains(t, err.Error(), "1MB")
}

func TestParse_TooManyFiles(t *testing.T) {
	req := uploadtest.Request(t, http.MethodPost, "/", nil, uploadtest.Images("images", 11)...)

	_, err := parse(t, req, productPolicy)
	require.ErrorIs(t, err, upload.ErrTooManyFiles)
}

func TestParse_SingleFileField(t *testing.T) {
	policy := upload.Policy{Field: "image", MaxBytes: 1 << 20}

	t.Run("missing", func(t *testing.T) {
		req := uploadtest.Request(t, http.MethodPost, "/", uploadtest.Fields{{"title", "x"}})
		form, err := parse(t, req, policy)
		require.NoError(t, err)
		_, err = form.File()
		require.ErrorIs(t, err, upload.ErrMissingFile)
	})

	t.Run("two files", func(t *testing.T) {
		req := uploadtest.Request(t, http.MethodPost, "/", nil,
			uploadtest.PNG("image", "a.png"), uploadtest.PNG("image", "b.png"))
		_, err := parse(t, req, policy)
		require.ErrorIs(t, err, upload.ErrTooManyFiles)
	})
}

func TestParse_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	_, err := parse(t, req, productPolicy)
	require.ErrorIs(t, err, upload.ErrMalformed)
}

func TestFilename(t *testing.T) {
	now := time.Unix(1700000000, 123)

	tests := []struct {
		original string
		want     string
	}{
		{"photo.png", "1700000000000000123-photo.png"},
		{"my photo.jpg", "1700000000000000123-my-photo.jpg"},
		{"../../etc/passwd.png", "1700000000000000123-passwd.png"},
		{`C:\Users\me\pic.jpeg`, "1700000000000000123-pic.jpeg"},
		{".hidden.png", "1700000000000000123-hidden.png"},
		{"", "1700000000000000123-image"},
		{"фото.png", "1700000000000000123-image.png"},
		{"SHOT.PNG", "1700000000000000123-SHOT.png"},
		{".png", "1700000000000000123-image.png"},
		{strings.Repeat("a", 300) + ".png", "1700000000000000123-" + strings.Repeat("a", 100) + ".png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, upload.Filename(now, tt.original), tt.original)
	}
}

func TestWriter_SaveLongName(t *testing.T) {
	dir, err := blob.Open(t.TempDir())
	require.NoError(t, err)

	file := uploadtest.PNG("image", strings.Repeat("a", 300)+".png")
	req := uploadtest.Request(t, http.MethodPost, "/", nil, file)
	form, err := parse(t, req, upload.Policy{Field: "image", MaxBytes: 1 << 20})
	require.NoError(t, err)

	fh, err := form.File()
	require.NoError(t, err)
	stored, err := upload.NewWriter(dir).Save(context.Background(), fh)
	require.NoError(t, err)
	assert.Less(t, len(stored.Filename), 255)
	assert.True(t, strings.HasSuffix(stored.Filename, ".png"), stored.Filename)

	data, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, file.Data, data)
}

func TestWriter_SaveAllKeepsOrder(t *testing.T) {
	dir, err := blob.Open(t.TempDir())
	require.NoError(t, err)

	files := uploadtest.Images("images", 5)
	files[3].Name = files[1].Name // duplicate originals still get distinct blobs
	req := uploadtest.Request(t, http.MethodPost, "/", nil, files...)
	form, err := parse(t, req, productPolicy)
	require.NoError(t, err)

	stored, err := upload.NewWriter(dir).SaveAll(context.Background(), form.Files)
	require.NoError(t, err)
	require.Len(t, stored, 5)

	seen := map[string]bool{}
	for i, s := range stored {
		assert.True(t, strings.HasSuffix(s.Filename, "-"+files[i].Name), s.Filename)
		assert.False(t, seen[s.Filename], "duplicate blob name %s", s.Filename)
		seen[s.Filename] = true

		data, err := os.ReadFile(s.Path)
		require.NoError(t, err)
		assert.Equal(t, files[i].Data, data)
	}
}

type flakyBlobs struct {
	mu      sync.Mutex
	saved   map[string]bool
	removed []string
	failOn  string
}

func (b *flakyBlobs) Save(_ context.Context, name string, r io.Reader) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.HasSuffix(name, b.failOn) {
		return 0, errors.New("disk full")
	}
	n, _ := io.Copy(io.Discard, r)
	b.saved[name] = true
	return n, nil
}

func (b *flakyBlobs) Remove(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, name)
	delete(b.saved, name)
	return nil
}

func (b *flakyBlobs) Path(name string) string { return "/blobs/" + name }

func TestWriter_SaveAllDiscardsOnFailure(t *testing.T) {
	blobs := &flakyBlobs{saved: map[string]bool{}, failOn: "photo-02.png"}

	req := uploadtest.Request(t, http.MethodPost, "/", nil, uploadtest.Images("images", 4)...)
	form, err := parse(t, req, productPolicy)
	require.NoError(t, err)

	_, err = upload.NewWriter(blobs).SaveAll(context.Background(), form.Files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, blobs.saved, "successful writes must be rolled back")
}
