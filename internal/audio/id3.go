package audio

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bogem/id3v2/v2"
)

// ID3v2.3 is what most players and car stereos read reliably.
const id3Version = 3

// ID3Tagger writes ID3v2.3 frames directly into MP3 files.
type ID3Tagger struct{}

func NewID3Tagger() *ID3Tagger {
	return &ID3Tagger{}
}

func (t *ID3Tagger) Tag(ctx context.Context, tp TagParams) error {
	if err := validateFile(tp.Path); err != nil {
		return fmt.Errorf("tagging failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Debug("Writing ID3 tags", "path", tp.Path, "title", tp.Title, "position", tp.Position)

	tag, err := id3v2.Open(tp.Path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tag of %s: %w", tp.Path, err)
	}
	defer tag.Close()

	tag.SetVersion(id3Version)
	tag.SetDefaultEncoding(id3v2.EncodingUTF16)

	tag.SetTitle(tp.Title)
	tag.SetAlbum(tp.Album.Title)
	tag.SetArtist(tp.Album.Artist)
	tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), tag.DefaultEncoding(), tp.Album.Artist)
	if tp.Album.Year != "" {
		tag.SetYear(tp.Album.Year)
	}
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), trackNumber(tp.Position, tp.Count))

	if len(tp.Cover) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    tag.DefaultEncoding(),
			MimeType:    coverMIME(tp.Cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     tp.Cover,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tag of %s: %w", tp.Path, err)
	}
	return nil
}

// ReadTags reads the ID3 frames of a file.
func ReadTags(path string) (Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Tags{}, fmt.Errorf("failed to open tag of %s: %w", path, err)
	}
	defer tag.Close()

	tags := Tags{
		Title:       tag.Title(),
		Artist:      tag.Artist(),
		AlbumArtist: tag.GetTextFrame(tag.CommonID("Band/Orchestra/Accompaniment")).Text,
		Album:       tag.Album(),
		Year:        tag.Year(),
		Track:       tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text,
	}

	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		tags.CoverMIME = pic.MimeType
		tags.CoverSize = len(pic.Picture)
		break
	}
	return tags, nil
}

func coverMIME(cover []byte) string {
	mime := http.DetectContentType(cover)
	if mime == "image/png" {
		return mime
	}
	return "image/jpeg"
}
