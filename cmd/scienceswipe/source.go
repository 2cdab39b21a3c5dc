package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/sources"
)

func newSourceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "source [papers|core|regional]",
		Short: "Rotate or set the active data source",
		Long: `Without an argument the source rotates papers -> core -> regional -> papers.
With an argument the named source is selected. The choice is saved in the
preferences file and used by the next feed.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(domain.SourcePapers), string(domain.SourceCore), string(domain.SourceRegional)},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := loadSettings(opts)
			if err != nil {
				return err
			}
			selector := sources.NewSelector(store.Get().DatabaseSource, store.SetSource)

			if len(args) == 0 {
				if _, err := selector.Toggle(); err != nil {
					return err
				}
			} else {
				source, err := domain.ParseSource(args[0])
				if err != nil {
					return err
				}
				if err := selector.Set(source); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "source: %s\n", selector.Current())
			return nil
		},
	}
}
