// Package media keeps uploaded cover and profile images on the local filesystem.
package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"booknook/internal/domain"
)

// MaxUploadBytes is the per-file ceiling.
const MaxUploadBytes = 5 << 20

// URLPrefix is where the web listener serves Root.
const URLPrefix = "/media/"

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type Store struct {
	Root string
}

func NewStore(root string) *Store { return &Store{Root: root} }

// Save validates and writes an upload under dir (e.g. "covers") and returns its public URL.
func (s *Store) Save(fh *multipart.FileHeader, dir string) (string, error) {
	if fh == nil {
		return "", domain.E(domain.ErrValidationFailed, "No file uploaded.")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		return "", domain.E(domain.ErrValidationFailed, "Only .jpg, .jpeg, .png, .gif and .webp images are allowed.")
	}
	if fh.Size > MaxUploadBytes {
		return "", domain.E(domain.ErrValidationFailed, "Images must be 5 MB or smaller.")
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	base := unsafeName.ReplaceAllString(strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename)), "_")
	if len(base) > 40 {
		base = base[:40]
	}
	name := uuid.NewString() + "_" + base + ext

	target := filepath.Join(s.Root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	dst, err := os.OpenFile(filepath.Join(target, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	// The header size comes from the client; the copy enforces the ceiling for real.
	n, err := io.Copy(dst, io.LimitReader(src, MaxUploadBytes+1))
	cerr := dst.Close()
	if err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadBytes {
		err = domain.E(domain.ErrValidationFailed, "Images must be 5 MB or smaller.")
	}
	if err != nil {
		_ = os.Remove(filepath.Join(target, name))
		return "", err
	}
	return URLPrefix + dir + "/" + name, nil
}

// Delete removes a file previously returned by Save. Unknown or foreign URLs are ignored.
func (s *Store) Delete(url string) error {
	rel, ok := s.relative(url)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Replace saves the new upload and then deletes the old file.
func (s *Store) Replace(fh *multipart.FileHeader, dir, oldURL string) (string, error) {
	url, err := s.Save(fh, dir)
	if err != nil {
		return "", err
	}
	_ = s.Delete(oldURL)
	return url, nil
}

func (s *Store) relative(url string) (string, bool) {
	if !strings.HasPrefix(url, URLPrefix) {
		return "", false
	}
	rel := filepath.Clean(strings.TrimPrefix(url, URLPrefix))
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", false
	}
	return rel, true
}
