package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaki95/playlist2album/internal/domain"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// HTTPFetcher downloads direct links to audio files
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTP fetcher
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// SupportsURL checks if the URL points straight at an audio file
func (d *HTTPFetcher) SupportsURL(raw string) bool {
	return isHTTP(raw) && audioExtension(raw) != ""
}

// Fetch downloads the audio file behind item.SourceRef
func (d *HTTPFetcher) Fetch(ctx context.Context, item domain.SourceItem, outputDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.SourceRef, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, responseFilename(resp, item.SourceRef))
	partPath := outputPath + ".part"

	outFile, err := os.Create(partPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	bytesWritten, err := io.Copy(outFile, resp.Body)
	closeErr := outFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	// Basic validation - check if we actually downloaded something
	if bytesWritten == 0 {
		os.Remove(partPath)
		return "", ErrFileEmpty
	}

	if err := validateAudioFile(partPath); err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("downloaded file validation failed: %w", err)
	}

	if err := os.Rename(partPath, outputPath); err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("failed to finalize download: %w", err)
	}

	slog.Info("Downloaded audio file", "path", outputPath, "size", bytesWritten)
	return outputPath, nil
}

// responseFilename picks a file name from Content-Disposition or the URL path.
func responseFilename(resp *http.Response, rawURL string) string {
	filename := ""
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			filename = params["filename"]
		}
	}
	if filename == "" {
		if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
			if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
				filename = name
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	stem := domain.Sanitize(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if !audioExtensions[ext] {
		ext = ".mp3"
	}
	return stem + ext
}

// validateAudioFile performs basic validation to ensure the downloaded file is likely an audio file
func validateAudioFile(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file for validation: %w", err)
	}
	defer file.Close()

	// Read first 512 bytes to check file signature
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}

	if n == 0 {
		return ErrFileEmpty
	}
	if n < 4 {
		return fmt.Errorf("file too small to be a valid audio file")
	}

	header := buffer[:n]

	// MP3 signatures
	if header[0] == 0xFF && (header[1]&0xE0) == 0xE0 {
		return nil // MP3 frame header
	}
	if string(header[:3]) == "ID3" {
		return nil // MP3 with ID3 tag
	}

	// Other audio formats
	switch string(header[:4]) {
	case "RIFF", "fLaC", "OggS":
		return nil
	}
	if len(header) >= 8 && string(header[4:8]) == "ftyp" {
		return nil // M4A/MP4
	}

	// Check if it looks like HTML/text (common when download fails)
	checkLen := len(header)
	if checkLen > 100 {
		checkLen = 100
	}
	headerStr := strings.ToLower(string(header[:checkLen]))
	if strings.Contains(headerStr, "<html") || strings.Contains(headerStr, "<!doctype") {
		return fmt.Errorf("downloaded file appears to be HTML, not an audio file - check the download URL")
	}

	// Unknown signature, leave it to the tagger to reject
	headerLen := len(header)
	if headerLen > 16 {
		headerLen = 16
	}
	slog.Warn("Could not verify audio file format, proceeding anyway", "path", filePath, "header", fmt.Sprintf("%x", header[:headerLen]))
	return nil
}
