package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jaki95/playlist2album/internal/api"
	"github.com/jaki95/playlist2album/internal/client"
	"github.com/jaki95/playlist2album/internal/domain"
)

func newFinalizeCmd() *cobra.Command {
	var (
		album     domain.AlbumMeta
		order     string
		titles    []string
		coverPath string
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "finalize <job-id>",
		Short: "Tag the chosen tracks in order and package them as an album",
		Example: `  playlist2album finalize 3f1c... --tracks 3,1,2 --title "1=Intro (Live)" \
      --album "Summer Mix" --artist "Various" --cover cover.jpg --out ./albums`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := client.New(serverURL)
			jobID := args[0]

			edits, err := trackEdits(order, titles)
			if err != nil {
				return err
			}
			if len(edits) == 0 {
				// Default to every fetched track in playlist order.
				manifest, err := c.Manifest(ctx, jobID)
				if err != nil {
					return err
				}
				for _, t := range manifest.Tracks {
					if t.Fetched {
						edits = append(edits, api.TrackEdit{ID: t.ID})
					}
				}
				if err := applyTitles(edits, titles); err != nil {
					return err
				}
			}

			req := api.FinalizeRequest{Album: album, OrderedTracks: edits}
			if coverPath != "" {
				cover, err := os.ReadFile(coverPath)
				if err != nil {
					return fmt.Errorf("failed to read cover: %w", err)
				}
				req.CoverBase64 = base64.StdEncoding.EncodeToString(cover)
			}

			res, err := c.Finalize(ctx, jobID, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Finalized %d tracks: %s\n", res.Count, res.ArtifactURL)

			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			target := filepath.Join(outDir, path.Base(res.ArtifactURL))
			f, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
			if err := c.Download(ctx, res.ArtifactURL, f); err != nil {
				f.Close()
				os.Remove(target)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&album.Title, "album", "", "Album title")
	cmd.Flags().StringVar(&album.Artist, "artist", "", "Album artist")
	cmd.Flags().StringVar(&album.Year, "year", "", "Release year")
	cmd.Flags().StringVar(&order, "tracks", "", "Comma separated track ids in album order (default: all fetched tracks)")
	cmd.Flags().StringArrayVar(&titles, "title", nil, "Rename a track, as id=Title (repeatable)")
	cmd.Flags().StringVar(&coverPath, "cover", "", "Cover image file")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to download the archive into")
	return cmd
}

// trackEdits parses "3,1,2" and applies any --title renames.
func trackEdits(order string, titles []string) ([]api.TrackEdit, error) {
	var edits []api.TrackEdit
	for _, field := range strings.Split(order, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid track id %q", field)
		}
		edits = append(edits, api.TrackEdit{ID: id})
	}
	if len(edits) == 0 {
		return nil, nil
	}
	return edits, applyTitles(edits, titles)
}

func applyTitles(edits []api.TrackEdit, titles []string) error {
	for _, t := range titles {
		idStr, title, ok := strings.Cut(t, "=")
		if !ok {
			return fmt.Errorf("invalid --title %q, expected id=Title", t)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil {
			return fmt.Errorf("invalid track id in --title %q", t)
		}

		found := false
		for i := range edits {
			if edits[i].ID == id {
				edits[i].Title = title
				found = true
			}
		}
		if !found {
			return fmt.Errorf("--title refers to track %d which is not selected", id)
		}
	}
	return nil
}
