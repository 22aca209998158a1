package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("invalid artifact name")
)

// DownloadPrefix is the path under which the HTTP server streams artifacts
// that have no public URL of their own.
const DownloadPrefix = "/download/"

// Storage keeps published album archives and hands out references that a
// client can download them from.
type Storage interface {
	// Publish stores the file at localPath under name and returns its
	// artifact reference. The local file may be consumed.
	Publish(ctx context.Context, localPath, name string) (string, error)

	// Open returns a reader for a published artifact.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Remove deletes a published artifact. Removing a missing artifact is not an error.
	Remove(ctx context.Context, name string) error

	Close() error
}

// ValidateName rejects names that would escape the artifact namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// objectKey joins an optional bucket prefix and the artifact name.
func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(strings.Trim(prefix, "/"), name)
}

// reference builds the artifact reference returned to clients.
func reference(publicBaseURL, key, name string) string {
	if publicBaseURL != "" {
		return strings.TrimSuffix(publicBaseURL, "/") + "/" + key
	}
	return DownloadPrefix + name
}
