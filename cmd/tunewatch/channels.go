// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/hints"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/spf13/cobra"
)

func newChannelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the saved channel catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.load(); err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			hintStore := hints.NewStore(c.cfg.HintsFile)
			_ = hintStore.Load()
			return printChannels(cmd.OutOrStdout(), catalog.New(c.cfg.DataDir), hintStore)
		},
	}
}

func printChannels(out io.Writer, cat *catalog.Catalog, lookup catalog.HintLookup) error {
	if _, err := cat.Load(); err != nil {
		if errors.Is(err, catalog.ErrNoFile) {
			fmt.Fprintln(out, "No saved channels yet, run `tunewatch scan` first.")
			return nil
		}
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tPROVIDER\tPROGRAM")
	for i, rec := range cat.Records() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, rec.Name, rec.Provider, cat.ProgramID(rec.Name, lookup))
	}
	return tw.Flush()
}
