// Package archive packages tagged tracks into a single album archive.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/storage"
)

var ErrNoEntries = errors.New("no entries to package")

// Entry is one file placed into the archive under Name.
type Entry struct {
	Path string
	Name string
}

// Packager builds an archive from entries in the given order and returns
// its artifact reference.
type Packager interface {
	Pack(ctx context.Context, name string, entries []Entry) (string, error)
}

// ZipPackager writes a deflate zip to a staging directory and publishes it.
type ZipPackager struct {
	stagingDir string
	store      storage.Storage
}

func NewZipPackager(stagingDir string, store storage.Storage) *ZipPackager {
	return &ZipPackager{stagingDir: stagingDir, store: store}
}

// partSuffix is appended by storage backends while a file is being written,
// so every name leaves room for it.
const partSuffix = ".part"

// EntryName formats an archive entry as "NN - Title.ext". The title is cut
// so the whole name fits in one path component.
func EntryName(position int, title, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)
	prefix := fmt.Sprintf("%02d - ", position)
	budget := domain.MaxNameBytes - len(partSuffix) - len(prefix) - len(ext)
	return prefix + domain.Truncate(domain.Sanitize(title), budget) + ext
}

// ArchiveName is "Artist - Album.zip", or "Album.zip" when there is no artist.
func ArchiveName(album domain.AlbumMeta) string {
	budget := domain.MaxNameBytes - len(partSuffix) - len(".zip")
	title := domain.Sanitize(album.Title)
	if strings.TrimSpace(album.Artist) == "" {
		return domain.Truncate(title, budget) + ".zip"
	}
	return domain.Truncate(domain.Sanitize(album.Artist+" - "+title), budget) + ".zip"
}

func (p *ZipPackager) Pack(ctx context.Context, name string, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", ErrNoEntries
	}
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	// Fail before creating anything if an entry is unreadable.
	if err := preValidate(entries); err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	staged, err := os.CreateTemp(p.stagingDir, "album_*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	stagedPath := staged.Name()
	defer os.Remove(stagedPath)

	if err := writeZip(ctx, staged, entries); err != nil {
		staged.Close()
		return "", err
	}
	if err := staged.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive: %w", err)
	}

	ref, err := p.store.Publish(ctx, stagedPath, name)
	if err != nil {
		return "", fmt.Errorf("failed to publish archive: %w", err)
	}

	slog.Info("Successfully created ZIP archive", "name", name, "trackCount", len(entries), "artifact", ref)
	return ref, nil
}

func preValidate(entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Name == "" || len(e.Name) > 255 {
			return fmt.Errorf("entry %d has an invalid name: %q", i+1, e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate archive entry %q", e.Name)
		}
		seen[e.Name] = true

		file, err := os.Open(e.Path)
		if err != nil {
			return fmt.Errorf("cannot open track file %d (%s): %w", i+1, e.Path, err)
		}
		file.Close()
	}
	return nil
}

func writeZip(ctx context.Context, w io.Writer, entries []Entry) error {
	zipWriter := zip.NewWriter(w)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			zipWriter.Close()
			return err
		}
		if err := addFile(zipWriter, e); err != nil {
			zipWriter.Close()
			return err
		}
	}
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish ZIP archive: %w", err)
	}
	return nil
}

// addFile adds a single file to the ZIP archive
func addFile(zipWriter *zip.Writer, e Entry) error {
	file, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", e.Path, err)
	}
	defer file.Close()

	modified := time.Now()
	if info, err := file.Stat(); err == nil {
		modified = info.ModTime()
	}

	zipEntry, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:     filepath.ToSlash(e.Name),
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("failed to create ZIP entry: %w", err)
	}

	if _, err := io.Copy(zipEntry, file); err != nil {
		return fmt.Errorf("failed to write file to ZIP: %w", err)
	}
	return nil
}
