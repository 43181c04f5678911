// Package storage keeps uploaded records and rendered reports and hands back
// the public URL each one is served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// FilesRoute is the API path blobs are served under.
const FilesRoute = "/api/v1/files/"

var (
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidName = errors.New("invalid blob name")
	ErrExists      = errors.New("blob already exists")
)

// maxNameAttempts bounds the suffixes StoreUnique tries.
const maxNameAttempts = 100

type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// BlobStore persists named blobs. Store returns a URL from which the blob
// can be fetched again and fails with ErrExists when name is taken.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType, name string) (string, error)
	Retrieve(ctx context.Context, name string) (*Blob, error)
}

// StoreUnique stores data under name, or under name with a -1, -2, ...
// suffix before the extension when that name is taken. It returns the name
// actually used and its URL.
func StoreUnique(ctx context.Context, store BlobStore, data []byte, contentType, name string) (string, string, error) {
	candidate := name
	for n := 1; n <= maxNameAttempts; n++ {
		url, err := store.Store(ctx, data, contentType, candidate)
		if err == nil {
			return candidate, url, nil
		}
		if !errors.Is(err, ErrExists) {
			return "", "", err
		}
		log.Debug().Str("name", candidate).Msg("Blob name taken, trying next suffix")
		candidate = suffixed(name, n)
	}
	return "", "", fmt.Errorf("%w: no free name for %s after %d attempts", ErrExists, name, maxNameAttempts)
}

// suffixed turns "a-1.pdf" into "a-1-<n>.pdf".
func suffixed(name string, n int) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + strconv.Itoa(n) + ext
}

// ValidateName rejects names that could escape the store.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// PublicURL joins the public base URL and the files route for name.
func PublicURL(publicBase, name string) string {
	return strings.TrimRight(publicBase, "/") + FilesRoute + url.PathEscape(name)
}

// LocalStore keeps blobs as files in one directory.
type LocalStore struct {
	dir        string
	publicBase string
}

func NewLocalStore(dir, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, publicBase: publicBase}, nil
}

func (s *LocalStore) Store(ctx context.Context, data []byte, contentType, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// write a temp file, then link it in place: readers never see a partial
	// file and the link fails if another writer already took the name
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}

	log.Debug().Str("name", name).Str("content_type", contentType).Int("bytes", len(data)).Msg("Stored blob")
	return PublicURL(s.publicBase, name), nil
}

func (s *LocalStore) Retrieve(ctx context.Context, name string) (*Blob, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return &Blob{Name: name, ContentType: ContentTypeFor(name), Data: data}, nil
}

// ContentTypeFor guesses a content type from the file extension.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
