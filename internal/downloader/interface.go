// Package downloader resolves playlist URLs into ordered source items and
// fetches each item as a local audio file.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/jaki95/playlist2album/internal/domain"
)

var (
	ErrUnsupportedURL = errors.New("unsupported URL")
	ErrNoAudioFiles   = errors.New("no audio files found")
	ErrFileEmpty      = errors.New("downloaded file is empty")
)

// Resolver expands a playlist URL into its items, in playlist order.
type Resolver interface {
	Resolve(ctx context.Context, playlistURL string) ([]domain.SourceItem, error)
}

// Fetcher downloads one item into outputDir and returns the file path.
// On failure nothing is left behind in outputDir.
type Fetcher interface {
	Fetch(ctx context.Context, item domain.SourceItem, outputDir string) (string, error)
}

// Supported audio file extensions
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
}

func isHTTP(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

// audioExtension returns the audio extension of the URL path, if any.
func audioExtension(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if audioExtensions[ext] {
		return ext
	}
	return ""
}

// commandError wraps external tool failures with the command line and output
type commandError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s\nCommand: %s\nOutput: %s", e.wrapped, e.cmd, e.output)
}

func (e *commandError) Unwrap() error {
	return e.wrapped
}

func newCommandError(cmd string, output string, err error) error {
	if len(cmd) > 200 {
		cmd = cmd[:200] + "..."
	}
	output = strings.TrimSpace(output)
	if len(output) > 2000 {
		output = "..." + output[len(output)-2000:]
	}
	return &commandError{cmd: cmd, output: output, wrapped: err}
}
