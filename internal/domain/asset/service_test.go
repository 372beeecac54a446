package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/upload"
)

type mockRepo struct {
	images    map[string]Image
	seq       int
	createErr error
}

func newMockRepo() *mockRepo { return &mockRepo{images: map[string]Image{}} }

func (m *mockRepo) List(_ context.Context) ([]Image, error) {
	out := make([]Image, 0, len(m.images))
	for _, img := range m.images {
		out = append(out, img)
	}
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, img *Image) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	img.ID = fmt.Sprintf("i%d", m.seq)
	m.images[img.ID] = *img
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) (*Image, error) {
	img, ok := m.images[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.images, id)
	return &img, nil
}

type mockBlobs struct {
	files     map[string]bool
	removeErr error
}

func (m *mockBlobs) Save(_ context.Context, fh *multipart.FileHeader) (upload.Stored, error) {
	name := "100-" + fh.Filename
	m.files[name] = true
	return upload.Stored{Filename: name, Path: "/data/" + name, Size: fh.Size}, nil
}

func (m *mockBlobs) Remove(name string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	if !m.files[name] {
		return errors.New("no such file")
	}
	delete(m.files, name)
	return nil
}

func newTestService(repo *mockRepo, blobs *mockBlobs) *Service {
	s := NewService(repo, blobs)
	s.now = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC) }
	return s
}

func TestService_Upload(t *testing.T) {
	repo, blobs := newMockRepo(), &mockBlobs{files: map[string]bool{}}
	svc := newTestService(repo, blobs)

	img, err := svc.Upload(context.Background(), &multipart.FileHeader{Filename: "cat.png"})
	require.NoError(t, err)
	assert.Equal(t, "i1", img.ID)
	assert.Equal(t, "100-cat.png", img.Filename)
	assert.Equal(t, "/data/100-cat.png", img.Path)
	assert.Equal(t, "/uploads/100-cat.png", img.URL())
	assert.Contains(t, repo.images, "i1")
}

func TestService_Upload_RemovesFileOnStoreError(t *testing.T) {
	repo, blobs := newMockRepo(), &mockBlobs{files: map[string]bool{}}
	repo.createErr = errors.New("store down")
	svc := newTestService(repo, blobs)

	_, err := svc.Upload(context.Background(), &multipart.FileHeader{Filename: "cat.png"})
	require.Error(t, err)
	assert.Empty(t, blobs.files)
}

func TestService_SaveBlob(t *testing.T) {
	repo, blobs := newMockRepo(), &mockBlobs{files: map[string]bool{}}
	svc := newTestService(repo, blobs)

	stored, err := svc.SaveBlob(context.Background(), &multipart.FileHeader{Filename: "post.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "100-post.jpg", stored.Filename)
	assert.Empty(t, repo.images, "blog uploads keep no metadata")
}

func TestService_Delete(t *testing.T) {
	repo, blobs := newMockRepo(), &mockBlobs{files: map[string]bool{}}
	svc := newTestService(repo, blobs)

	img, err := svc.Upload(context.Background(), &multipart.FileHeader{Filename: "cat.png"})
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Filename, deleted.Filename)
	assert.Empty(t, blobs.files)

	_, err = svc.Delete(context.Background(), img.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete_MissingBlob(t *testing.T) {
	repo, blobs := newMockRepo(), &mockBlobs{files: map[string]bool{}}
	svc := newTestService(repo, blobs)

	img, err := svc.Upload(context.Background(), &multipart.FileHeader{Filename: "cat.png"})
	require.NoError(t, err)
	delete(blobs.files, img.Filename)

	deleted, err := svc.Delete(context.Background(), img.ID)
	var berr *BlobRemovalError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, img.ID, berr.Image.ID)
	assert.Equal(t, img.ID, deleted.ID)
	assert.Empty(t, repo.images, "metadata stays deleted")
}

func TestImage_JSON(t *testing.T) {
	img := Image{
		ID:        "i1",
		Filename:  "1-a.png",
		Path:      "/srv/uploads/1-a.png",
		CreatedAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	}

	data, err := json.Marshal(img)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "i1",
		"filename": "1-a.png",
		"path": "/srv/uploads/1-a.png",
		"createdAt": "2024-02-03T04:05:06Z",
		"url": "/uploads/1-a.png"
	}`, string(data))

	var got Image
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, img, got)
}
