package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jaki95/playlist2album/internal/api"
	"github.com/jaki95/playlist2album/internal/client"
	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/progress"
)

func newDownloadCmd() *cobra.Command {
	var (
		album    domain.AlbumMeta
		interval time.Duration
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "download <playlist-url>",
		Short: "Fetch every track of a playlist and print the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := client.New(serverURL)

			created, err := c.CreateJob(ctx, args[0], album)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Job %s created\n", created.JobID)

			fmt.Fprintln(cmd.ErrOrStderr(), "Resolving playlist...")
			view := &progressView{}
			state, err := c.WaitFetched(ctx, created.JobID, interval, view.render)
			view.finish()
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if state.Status == progress.StageError {
				return fmt.Errorf("job %s failed: %s", created.JobID, state.Error)
			}

			manifest, err := c.Manifest(ctx, created.JobID)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(manifest)
			}
			return printManifest(cmd.OutOrStdout(), manifest)
		},
	}

	cmd.Flags().StringVar(&album.Title, "album", "", "Album title")
	cmd.Flags().StringVar(&album.Artist, "artist", "", "Album artist")
	cmd.Flags().StringVar(&album.Year, "year", "", "Release year")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Progress polling interval")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the manifest as JSON")
	return cmd
}

// progressView draws a bar once the number of tracks is known.
type progressView struct {
	bar *progressbar.ProgressBar
}

func (v *progressView) render(s progress.State) {
	if s.Total == 0 {
		return
	}
	if v.bar == nil {
		v.bar = progressbar.NewOptions(
			s.Total,
			progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionFullWidth(),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Fetching tracks...[reset]"),
		)
	}
	if s.CurrentTitle != "" {
		v.bar.Describe(fmt.Sprintf("[cyan]Fetching[reset] %s", s.CurrentTitle))
	}
	v.bar.Set(s.Current)
}

func (v *progressView) finish() {
	if v.bar != nil {
		v.bar.Finish()
	}
}

func printManifest(w io.Writer, m *api.ManifestResponse) error {
	fmt.Fprintf(w, "Job %s (%s)\n", m.JobID, m.Status)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS")
	for _, t := range m.Tracks {
		status := "ok"
		if !t.Fetched {
			status = "failed: " + t.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, t.Title, status)
	}
	return tw.Flush()
}
