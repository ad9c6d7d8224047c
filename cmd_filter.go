package main

import (
	"fmt"

	"tanyabot/config"
	"tanyabot/filter"

	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Manage the disallowed words list",
}

var filterAddCmd = &cobra.Command{
	Use:   "add WORD...",
	Short: "Add words to the filter list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, cleanup, err := openFilter(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		for _, w := range args {
			if err := f.Add(cmd.Context(), w); err != nil {
				return fmt.Errorf("add %q: %w", w, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d words in filter list\n", len(f.Words()))
		return nil
	},
}

var filterListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the filter list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, cleanup, err := openFilter(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		for _, w := range f.Words() {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return nil
	},
}

func init() {
	filterCmd.AddCommand(filterAddCmd)
	filterCmd.AddCommand(filterListCmd)
}

func openFilter(cmd *cobra.Command) (*filter.Filter, func(), error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}

	p, db, err := openPersisters(cmd.Context(), cfg, logger)
	if err != nil {
		config.Cleanup()
		return nil, nil, err
	}
	cleanup := func() {
		if db != nil {
			db.Close()
		}
		config.Cleanup()
	}

	f, err := filter.New(cmd.Context(), p.words, logger, filter.DefaultWords...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return f, cleanup, nil
}
