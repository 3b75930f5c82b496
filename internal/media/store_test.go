package media

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
)

func fileHeader(t *testing.T, name string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveAndDelete(t *testing.T) {
	s := NewStore(t.TempDir())
	url, err := s.Save(fileHeader(t, "my cover.PNG", []byte("png-bytes")), "covers")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/covers/"))
	assert.True(t, strings.HasSuffix(url, "_my_cover.png"))

	path := filepath.Join(s.Root, strings.TrimPrefix(url, URLPrefix))
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.Delete(url))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRejectsExtension(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Save(fileHeader(t, "evil.svg", []byte("<svg/>")), "covers")
	assert.True(t, domain.Is(err, domain.ErrValidationFailed))
}

func TestSaveRejectsOversize(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Save(fileHeader(t, "big.jpg", make([]byte, MaxUploadBytes+1)), "covers")
	assert.True(t, domain.Is(err, domain.ErrValidationFailed))
}

func TestDeleteIgnoresForeignPaths(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.NoError(t, s.Delete("https://example.com/a.png"))
	assert.NoError(t, s.Delete("/media/../../etc/passwd"))
}
