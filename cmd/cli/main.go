package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jaki95/playlist2album/internal/client"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:           "playlist2album",
	Short:         "Turn a playlist into a tagged album archive",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultURL := os.Getenv("PLAYLIST2ALBUM_SERVER")
	if defaultURL == "" {
		defaultURL = client.DefaultBaseURL
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "Base URL of the playlist2album server")

	rootCmd.AddCommand(newDownloadCmd(), newFinalizeCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
