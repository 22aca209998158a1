package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaki95/playlist2album/internal/domain"
)

const defaultDownloadTimeout = 30 * time.Minute

// Hosts yt-dlp is used for. Other pages are scraped for audio links.
var ytdlpHosts = []string{
	"youtube.com",
	"youtu.be",
	"soundcloud.com",
	"vimeo.com",
	"bandcamp.com",
	"mixcloud.com",
}

// YtDlp resolves and fetches through the yt-dlp command line tool.
type YtDlp struct {
	binary      string
	ffmpegPath  string
	audioFormat string
	timeout     time.Duration
}

func NewYtDlp(binary, ffmpegPath, audioFormat string, timeout time.Duration) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	if audioFormat == "" {
		audioFormat = "mp3"
	}
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &YtDlp{
		binary:      binary,
		ffmpegPath:  ffmpegPath,
		audioFormat: audioFormat,
		timeout:     timeout,
	}
}

// SupportsURL checks if the URL belongs to a site handled by yt-dlp
func (y *YtDlp) SupportsURL(raw string) bool {
	if !isHTTP(raw) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range ytdlpHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

type flatEntry struct {
	Type       string       `json:"_type"`
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	URL        string       `json:"url"`
	WebpageURL string       `json:"webpage_url"`
	Entries    []*flatEntry `json:"entries"`
}

func (e *flatEntry) ref() string {
	switch {
	case e.URL != "":
		return e.URL
	case e.WebpageURL != "":
		return e.WebpageURL
	default:
		return e.ID
	}
}

// pageRef is the reference for a fully extracted single item, whose url is
// usually a direct media stream rather than a page the fetchers accept.
func (e *flatEntry) pageRef() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.ref()
}

// Resolve lists the playlist without downloading anything.
func (y *YtDlp) Resolve(ctx context.Context, playlistURL string) ([]domain.SourceItem, error) {
	slog.Info("Resolving playlist with yt-dlp", "url", playlistURL)

	args := []string{"--flat-playlist", "-J", "--no-warnings", playlistURL}
	stdout, err := y.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve playlist: %w", err)
	}

	items, err := parseFlatPlaylist(stdout)
	if err != nil {
		return nil, err
	}
	slog.Info("Resolved playlist", "url", playlistURL, "items", len(items))
	return items, nil
}

// parseFlatPlaylist turns `yt-dlp --flat-playlist -J` output into items.
// A single video URL yields one item.
func parseFlatPlaylist(data []byte) ([]domain.SourceItem, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}

	var root flatEntry
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	if root.Type != "playlist" && root.Entries == nil {
		return []domain.SourceItem{{SourceRef: root.pageRef(), Title: root.Title}}, nil
	}

	items := make([]domain.SourceItem, 0, len(root.Entries))
	for _, e := range root.Entries {
		// Unavailable entries come back as null.
		if e == nil || e.ref() == "" {
			continue
		}
		title := e.Title
		if title == "" {
			title = e.ID
		}
		items = append(items, domain.SourceItem{SourceRef: e.ref(), Title: title})
	}
	return items, nil
}

// Fetch extracts the audio of one item. The download happens in a scratch
// directory that is always removed, so a failure leaves nothing behind.
func (y *YtDlp) Fetch(ctx context.Context, item domain.SourceItem, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	scratch, err := os.MkdirTemp(outputDir, ".fetch-*")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	args := []string{
		"-x",
		"--audio-format", y.audioFormat,
		"--no-playlist",
		"--no-progress",
		"--restrict-filenames",
		"-o", filepath.Join(scratch, "%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
	}
	if y.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", y.ffmpegPath)
	}
	args = append(args, item.SourceRef)

	slog.Debug("Fetching with yt-dlp", "ref", item.SourceRef, "title", item.Title)

	stdout, err := y.run(ctx, args)
	if err != nil {
		return "", err
	}

	downloaded := lastLine(stdout)
	if downloaded == "" {
		return "", fmt.Errorf("%w: yt-dlp reported no output file for %s", ErrNoAudioFiles, item.SourceRef)
	}
	if err := validateAudioFile(downloaded); err != nil {
		return "", fmt.Errorf("downloaded file validation failed: %w", err)
	}

	target := filepath.Join(outputDir, filepath.Base(downloaded))
	if err := os.Rename(downloaded, target); err != nil {
		return "", fmt.Errorf("failed to move downloaded file: %w", err)
	}
	return target, nil
}

func (y *YtDlp) run(ctx context.Context, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("yt-dlp interrupted: %w", ctx.Err())
		}
		return nil, newCommandError(cmd.String(), stderr.String(), fmt.Errorf("yt-dlp failed: %w", err))
	}
	return stdout.Bytes(), nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
