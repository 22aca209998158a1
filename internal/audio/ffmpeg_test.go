package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/playlist2album/internal/domain"
)

func TestNewFFmpegTagger(t *testing.T) {
	assert.Equal(t, "ffmpeg", NewFFmpegTagger("").binary)
	assert.Equal(t, "/opt/bin/ffmpeg", NewFFmpegTagger("/opt/bin/ffmpeg").binary)
}

func TestFFmpegArgs(t *testing.T) {
	tagger := NewFFmpegTagger("")
	tp := TagParams{
		Path:     "in.mp3",
		Title:    "Intro",
		Position: 2,
		Count:    9,
		Album:    domain.AlbumMeta{Title: "Mix", Artist: "DJ", Year: "2024"},
	}

	t.Run("without cover", func(t *testing.T) {
		args := tagger.args(tp, "mp3", "", "out.mp3")
		assert.Equal(t, []string{"-y", "-i", "in.mp3"}, args[:3])
		assert.Equal(t, "out.mp3", args[len(args)-1])
		assert.NotContains(t, args, "attached_pic")
		assert.Contains(t, args, "title=Intro")
		assert.Contains(t, args, "track=2/9")
		assert.Contains(t, args, "album=Mix")
		assert.Contains(t, args, "album_artist=DJ")
		assert.Contains(t, args, "date=2024")
	})

	t.Run("with cover", func(t *testing.T) {
		args := tagger.args(tp, "mp3", "cover.img", "out.mp3")
		assert.Equal(t, []string{"-y", "-i", "in.mp3", "-i", "cover.img"}, args[:5])
		assert.Contains(t, args, "attached_pic")
		assert.Contains(t, args, "1:v")
	})

	t.Run("no year", func(t *testing.T) {
		noYear := tp
		noYear.Album.Year = ""
		args := tagger.args(noYear, "mp3", "", "out.mp3")
		for _, a := range args {
			assert.NotContains(t, a, "date=")
		}
	})
}

func TestFFmpegTagValidatesInput(t *testing.T) {
	tagger := NewFFmpegTagger("")

	err := tagger.Tag(context.Background(), TagParams{Path: filepath.Join(t.TempDir(), "missing.mp3")})
	assert.ErrorIs(t, err, ErrFileNotFound)

	empty := filepath.Join(t.TempDir(), "empty.mp3")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	err = tagger.Tag(context.Background(), TagParams{Path: empty})
	assert.ErrorIs(t, err, ErrFileEmpty)

	unknown := filepath.Join(t.TempDir(), "track.ogg")
	require.NoError(t, os.WriteFile(unknown, []byte("audio"), 0644))
	err = tagger.Tag(context.Background(), TagParams{Path: unknown})
	assert.ErrorIs(t, err, ErrInvalidExtension)
}

// fakeFFmpeg writes a script that copies the first input to the last argument.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestFFmpegTagReplacesFile(t *testing.T) {
	bin := fakeFFmpeg(t, "for last; do :; done\nprintf 'tagged' > \"$last\"\n")

	path := filepath.Join(t.TempDir(), "01.mp3")
	require.NoError(t, os.WriteFile(path, []byte("raw audio"), 0644))

	err := NewFFmpegTagger(bin).Tag(context.Background(), TagParams{
		Path:     path,
		Title:    "One",
		Position: 1,
		Count:    1,
		Cover:    []byte{0xFF, 0xD8, 0xFF, 0xE0},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tagged", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary cover and output are cleaned up")
}

func TestFFmpegTagFailure(t *testing.T) {
	bin := fakeFFmpeg(t, "echo 'Invalid data found when processing input' >&2\nexit 1\n")

	path := filepath.Join(t.TempDir(), "01.mp3")
	require.NoError(t, os.WriteFile(path, []byte("raw audio"), 0644))

	err := NewFFmpegTagger(bin).Tag(context.Background(), TagParams{Path: path, Title: "One"})
	require.Error(t, err)

	var ffErr *ffmpegError
	require.ErrorAs(t, err, &ffErr)
	assert.Contains(t, ffErr.output, "Invalid data")

	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "raw audio", string(data), "source is untouched on failure")
}
