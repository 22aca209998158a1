package audio

import (
	"context"
	"fmt"

	"github.com/jaki95/playlist2album/internal/domain"
)

// Tagger writes album metadata into an audio file in place.
type Tagger interface {
	Tag(ctx context.Context, tp TagParams) error
}

type TagParams struct {
	Path     string
	Title    string
	Position int
	Count    int
	Album    domain.AlbumMeta
	Cover    []byte
}

// Tags is the metadata read back from a tagged file.
type Tags struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Year        string
	Track       string
	CoverMIME   string
	CoverSize   int
}

// trackNumber formats the position the way players expect it, e.g. "3/12".
func trackNumber(position, count int) string {
	if count <= 0 {
		return fmt.Sprintf("%d", position)
	}
	return fmt.Sprintf("%d/%d", position, count)
}
