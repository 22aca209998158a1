package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/storage"
)

func TestEntryName(t *testing.T) {
	assert.Equal(t, "01 - Intro.mp3", EntryName(1, "Intro", ".mp3"))
	assert.Equal(t, "12 - AC DC.mp3", EntryName(12, "AC/DC", "mp3"))
	assert.Equal(t, "03 - untitled.mp3", EntryName(3, "  ", ".MP3"))
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		album domain.AlbumMeta
		want  string
	}{
		{album: domain.AlbumMeta{Title: "Mix", Artist: "DJ"}, want: "DJ - Mix.zip"},
		{album: domain.AlbumMeta{Title: "Mix"}, want: "Mix.zip"},
		{album: domain.AlbumMeta{Title: "Best: Of?", Artist: "A/B"}, want: "A B - Best Of.zip"},
		{album: domain.AlbumMeta{}, want: "untitled.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ArchiveName(tt.album))
		})
	}
}

func TestLongNamesFitOnePathComponent(t *testing.T) {
	maxLen := domain.MaxNameBytes - len(".part")

	entry := EntryName(7, strings.Repeat("x", 300), ".mp3")
	assert.LessOrEqual(t, len(entry), maxLen)
	assert.True(t, strings.HasPrefix(entry, "07 - xxx"))
	assert.True(t, strings.HasSuffix(entry, ".mp3"))

	wide := EntryName(1, strings.Repeat("ö", 300), ".m4a")
	assert.LessOrEqual(t, len(wide), maxLen)
	assert.True(t, utf8.ValidString(wide))

	for _, album := range []domain.AlbumMeta{
		{Title: strings.Repeat("y", 300)},
		{Title: strings.Repeat("y", 300), Artist: strings.Repeat("ß", 100)},
	} {
		name := ArchiveName(album)
		assert.LessOrEqual(t, len(name), maxLen)
		assert.True(t, utf8.ValidString(name))
		assert.True(t, strings.HasSuffix(name, ".zip"))
	}
}

func TestZipPackagerPackLongNames(t *testing.T) {
	src := t.TempDir()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	packager := NewZipPackager(t.TempDir(), store)

	entries := []Entry{{
		Path: writeTrack(t, src, "a.mp3", "A"),
		Name: EntryName(1, strings.Repeat("x", 300), ".mp3"),
	}}
	ref, err := packager.Pack(context.Background(), ArchiveName(domain.AlbumMeta{Title: strings.Repeat("y", 300)}), entries)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}

func writeTrack(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestZipPackagerPack(t *testing.T) {
	srcDir := t.TempDir()
	outputDir := t.TempDir()
	store, err := storage.NewLocalStorage(outputDir)
	require.NoError(t, err)

	packager := NewZipPackager(t.TempDir(), store)
	entries := []Entry{
		{Path: writeTrack(t, srcDir, "c.mp3", "third fetched"), Name: "01 - C.mp3"},
		{Path: writeTrack(t, srcDir, "a.mp3", "first fetched"), Name: "02 - A.mp3"},
	}

	ref, err := packager.Pack(context.Background(), "DJ - Mix.zip", entries)
	require.NoError(t, err)
	assert.Equal(t, "/download/DJ - Mix.zip", ref)

	reader, err := zip.OpenReader(filepath.Join(outputDir, "DJ - Mix.zip"))
	require.NoError(t, err)
	defer reader.Close()

	require.Len(t, reader.File, 2)
	assert.Equal(t, "01 - C.mp3", reader.File[0].Name)
	assert.Equal(t, "02 - A.mp3", reader.File[1].Name)
	assert.Equal(t, zip.Deflate, reader.File[0].Method)

	rc, err := reader.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "third fetched", string(data))
}

func TestZipPackagerValidation(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	stagingDir := t.TempDir()
	packager := NewZipPackager(stagingDir, store)
	track := writeTrack(t, t.TempDir(), "a.mp3", "x")

	_, err = packager.Pack(context.Background(), "a.zip", nil)
	assert.ErrorIs(t, err, ErrNoEntries)

	_, err = packager.Pack(context.Background(), "../a.zip", []Entry{{Path: track, Name: "01 - A.mp3"}})
	assert.ErrorIs(t, err, storage.ErrInvalidName)

	_, err = packager.Pack(context.Background(), "a.zip", []Entry{
		{Path: track, Name: "01 - A.mp3"},
		{Path: track, Name: "01 - A.mp3"},
	})
	assert.ErrorContains(t, err, "duplicate")

	_, err = packager.Pack(context.Background(), "a.zip", []Entry{{Path: filepath.Join(stagingDir, "gone.mp3"), Name: "01 - A.mp3"}})
	assert.Error(t, err)

	leftovers, err := os.ReadDir(stagingDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
