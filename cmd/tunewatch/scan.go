// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/engine"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/scan"
	"github.com/spf13/cobra"
)

func newScanCmd(c *cli) *cobra.Command {
	var frontendType, country, outputFormat string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for channels and save channels.conf",
		Long: "Runs the channel scanner on the configured adapter, replaces the saved catalog " +
			"with the result and prints a summary. Interrupting the command stops the scanner.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.load(); err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			opts := scanOptions(c.cfg)
			if frontendType != "" {
				opts.FrontendType = frontendType
			}
			if country != "" {
				opts.Country = country
			}
			if outputFormat != "" {
				opts.OutputFormat = outputFormat
			}
			return runScan(cmd.Context(), cmd.OutOrStdout(), engineConfig(c.cfg), catalog.New(c.cfg.DataDir), opts)
		},
	}
	cmd.Flags().StringVar(&frontendType, "frontend-type", "", "frontend type (t, t1, t2, a, c)")
	cmd.Flags().StringVar(&country, "country", "", "two-letter country code")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "scanner output format")
	return cmd
}

func runScan(ctx context.Context, out io.Writer, cfg engine.Config, cat *catalog.Catalog, opts scan.Options) error {
	eng := engine.New(cfg, engine.Deps{Catalog: cat})

	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		stop()
		<-done
	}()

	if err := eng.StartScan(ctx, opts); err != nil {
		return err
	}
	fmt.Fprintf(out, "Scanning %s (frontend type %s)...\n", opts.FrontendPath(), opts.FrontendType)

	res, err := eng.AwaitScan(ctx)
	if err != nil {
		// Interrupted: stop the scanner and wait for its exit so the partial catalog is persisted.
		_ = eng.StopScan(context.WithoutCancel(ctx))
		res, err = eng.AwaitScan(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
	}

	printScanResult(out, res, cat)
	if res.Error != "" {
		return fmt.Errorf("scan failed: %s", res.Error)
	}
	return nil
}

func printScanResult(out io.Writer, res engine.ScanResult, cat *catalog.Catalog) {
	status := "finished"
	if res.Interrupted {
		status = "interrupted"
	}
	fmt.Fprintf(out, "Scan %s after %s: %d channels (exit code %d)\n",
		status, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond), res.Channels, res.ExitCode)
	if res.Persisted {
		fmt.Fprintf(out, "Saved to %s\n", cat.Path())
	}
}
