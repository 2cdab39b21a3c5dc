// Package main provides the ScienceSwipe terminal client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// options are the flags shared by every command.
type options struct {
	prefsPath  string
	autoImages bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "scienceswipe",
		Short: "Swipe through AI-summarized research papers",
		Long: `scienceswipe shows AI-summarized scientific papers as a swipeable card feed.

Move with the arrow keys, a horizontal mouse wheel or by dragging a card
sideways. Press m to mark a paper as mind blowing and s to switch between
the papers, CORE and regional sources.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Load .env file if present (database password, API base URL).
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClient(cmd.Context(), opts, "")
		},
	}
	root.Version = Version
	root.PersistentFlags().StringVar(&opts.prefsPath, "prefs", "", "Path of the preferences file (default: user config dir)")
	root.Flags().BoolVar(&opts.autoImages, "auto-images", false, "Generate an illustration for every card shown without one")

	root.AddCommand(newPaperCmd(opts), newSourceCmd(opts))
	return root
}

func newPaperCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paper <id>",
		Short: "Open a single paper by id or DOI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.autoImages, "auto-images", false, "Generate an illustration if the paper has none")
	return cmd
}
