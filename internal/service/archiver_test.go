package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStorage struct {
	uploadErr error
	lastKey   string
	lastCT    string
	lastSize  int64
}

func (f *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	f.lastKey = key
	f.lastCT = contentType
	f.lastSize = size
	return f.uploadErr
}

func (f *fakeStorage) GetURL(key string) string {
	return "https://cdn.test/bucket/" + key
}

func (f *fakeStorage) EnsureBucket(ctx context.Context) error {
	return nil
}

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestArchiver_UploadSucceeds(t *testing.T) {
	st := &fakeStorage{}
	a := NewArchiver(st, testLogger())

	url := a.Archive(context.Background(), jpegMagic, FolderUploads, "")

	assert.True(t, strings.HasPrefix(url, "https://cdn.test/bucket/food-uploads/"), "url = %q", url)
	assert.True(t, strings.HasPrefix(st.lastKey, FolderUploads+"/"), "key = %q", st.lastKey)
	assert.True(t, strings.HasSuffix(st.lastKey, ".jpg"), "key = %q", st.lastKey)
	assert.Equal(t, "image/jpeg", st.lastCT)
	assert.Equal(t, int64(len(jpegMagic)), st.lastSize)
}

func TestArchiver_FreshKeyPerUpload(t *testing.T) {
	st := &fakeStorage{}
	a := NewArchiver(st, testLogger())

	first := a.Archive(context.Background(), jpegMagic, FolderURLs, "")
	second := a.Archive(context.Background(), jpegMagic, FolderURLs, "")

	assert.NotEqual(t, first, second)
}

func TestArchiver_UploadFails(t *testing.T) {
	st := &fakeStorage{uploadErr: errors.New("bucket on fire")}
	a := NewArchiver(st, testLogger())

	url := a.Archive(context.Background(), jpegMagic, FolderURLs, "https://origin.test/pic.jpg")
	assert.Equal(t, "https://origin.test/pic.jpg", url)
}

func TestArchiver_UploadFailsWithoutFallback(t *testing.T) {
	st := &fakeStorage{uploadErr: errors.New("bucket on fire")}
	a := NewArchiver(st, testLogger())

	url := a.Archive(context.Background(), jpegMagic, FolderUploads, "")
	assert.Equal(t, "", url)
}

func TestArchiver_NilStorage(t *testing.T) {
	a := NewArchiver(nil, testLogger())

	url := a.Archive(context.Background(), jpegMagic, FolderUploads, "https://origin.test/pic.jpg")
	assert.Equal(t, "https://origin.test/pic.jpg", url)
}
