// Package audio writes album metadata into fetched audio files, either
// natively through ID3 frames or through an FFmpeg remux.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Container formats FFmpeg is asked to write, by file extension
var supportedFormats = map[string]string{
	"mp3":  "mp3",
	"m4a":  "mp4",
	"wav":  "wav",
	"flac": "flac",
}

const defaultID3Version = "3"

var (
	ErrFileNotFound     = fmt.Errorf("file not found")
	ErrFileEmpty        = fmt.Errorf("file is empty")
	ErrInvalidPath      = fmt.Errorf("invalid path")
	ErrInvalidExtension = fmt.Errorf("invalid file extension")
)

// ffmpegError wraps FFmpeg command errors with additional context
type ffmpegError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *ffmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s\nCommand: %s\nOutput: %s", e.wrapped, e.cmd, e.output)
}

func (e *ffmpegError) Unwrap() error {
	return e.wrapped
}

// newFFmpegError creates a new ffmpegError with truncated command and output
func newFFmpegError(cmd *exec.Cmd, output []byte, err error) error {
	cmdStr := cmd.String()
	if len(cmdStr) > 200 {
		cmdStr = cmdStr[:200] + "..."
	}
	out := string(output)
	if len(out) > 2000 {
		out = "..." + out[len(out)-2000:]
	}
	return &ffmpegError{
		cmd:     cmdStr,
		output:  out,
		wrapped: err,
	}
}

func validateFile(path string) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("unable to access file: %s: %w", path, err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidPath, path)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrFileEmpty, path)
	}

	return nil
}

// FFmpegTagger remuxes the file with new metadata and an optional attached
// cover. The audio stream is copied, never re-encoded.
type FFmpegTagger struct {
	binary string
}

func NewFFmpegTagger(binary string) *FFmpegTagger {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTagger{binary: binary}
}

func (f *FFmpegTagger) Tag(ctx context.Context, tp TagParams) error {
	if err := validateFile(tp.Path); err != nil {
		return fmt.Errorf("tagging failed: %w", err)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(tp.Path)), ".")
	format, ok := supportedFormats[ext]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, ext)
	}

	coverPath := ""
	if len(tp.Cover) > 0 {
		cover, err := os.CreateTemp(filepath.Dir(tp.Path), "cover_*.img")
		if err != nil {
			return fmt.Errorf("failed to create cover file: %w", err)
		}
		coverPath = cover.Name()
		defer os.Remove(coverPath)

		_, err = cover.Write(tp.Cover)
		cover.Close()
		if err != nil {
			return fmt.Errorf("failed to write cover file: %w", err)
		}
	}

	// Write next to the source so the final rename stays on one filesystem.
	tempPath := strings.TrimSuffix(tp.Path, filepath.Ext(tp.Path)) + ".tagging." + ext
	defer os.Remove(tempPath)

	slog.Debug("Adding metadata and cover art",
		"input", tp.Path,
		"output", tempPath,
		"title", tp.Title,
	)

	cmd := exec.CommandContext(ctx, f.binary, f.args(tp, format, coverPath, tempPath)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newFFmpegError(cmd, output, err)
	}

	if err := validateFile(tempPath); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	if err := os.Rename(tempPath, tp.Path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", tp.Path, err)
	}
	return nil
}

func (f *FFmpegTagger) args(tp TagParams, format, coverPath, outputPath string) []string {
	args := []string{
		"-y",
		"-i", tp.Path,
	}
	if coverPath != "" {
		args = append(args, "-i", coverPath)
	}

	args = append(args, "-map", "0:a", "-c:a", "copy")
	if coverPath != "" {
		args = append(args,
			"-map", "1:v",
			"-c:v", "mjpeg",
			"-disposition:v:0", "attached_pic",
			"-metadata:s:v", "title=Album cover",
			"-metadata:s:v", "comment=Cover (front)",
		)
	}

	args = append(args,
		"-f", format,
		"-id3v2_version", defaultID3Version,
	)

	// Ordered so the command line is stable.
	metadata := [][2]string{
		{"title", tp.Title},
		{"artist", tp.Album.Artist},
		{"album_artist", tp.Album.Artist},
		{"album", tp.Album.Title},
		{"track", trackNumber(tp.Position, tp.Count)},
	}
	if tp.Album.Year != "" {
		metadata = append(metadata, [2]string{"date", tp.Album.Year})
	}
	for _, kv := range metadata {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", kv[0], kv[1]))
	}

	return append(args, outputPath)
}
