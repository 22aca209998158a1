package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTrackJSON(t *testing.T) {
	track := Track{
		ID:        1,
		SourceRef: "dQw4w9WgXcQ",
		Title:     "Intro",
		LocalPath: "/data/jobs/x/dQw4w9WgXcQ.mp3",
	}

	data, err := json.Marshal(track)
	assert.NoError(t, err)

	expected := `{"id":1,"source_ref":"dQw4w9WgXcQ","title":"Intro","local_path":"/data/jobs/x/dQw4w9WgXcQ.mp3"}`
	assert.JSONEq(t, expected, string(data))
}

func TestTrackFetched(t *testing.T) {
	assert.True(t, Track{LocalPath: "a.mp3"}.Fetched())
	assert.False(t, Track{FetchError: "video unavailable"}.Fetched())
	assert.False(t, Track{}.Fetched())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Normal Track Name", "Normal Track Name"},
		{"Track/With\\Slash", "Track With Slash"},
		{"Track:With*Special?Chars", "Track With Special Chars"},
		{"  Spaced   Track  ", "Spaced Track"},
		{"Line\nBreak\tTab", "Line Break Tab"},
		{"Track\"With'Quotes", "Track With'Quotes"},
		{"???", "untitled"},
		{"", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab cd", 3))
	assert.Equal(t, "", Truncate("abc", 0))

	// "é" is two bytes; a cut inside it drops the whole rune.
	got := Truncate("aéb", 2)
	assert.Equal(t, "a", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("ü", 200)
	got = Truncate(long, 255)
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, utf8.ValidString(got))
}
