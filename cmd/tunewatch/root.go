// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/tunewatch/internal/config"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/version"
	"github.com/spf13/cobra"
)

// cli carries flags and the loaded configuration between commands.
type cli struct {
	configPath string
	logLevel   string
	cfg        config.AppConfig
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "tunewatch",
		Short:         "Headless DVB tuner watcher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config file (YAML), defaults to "+config.DefaultPath())
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(c),
		newScanCmd(c),
		newChannelsCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return root
}

// path returns the explicit config path or the default location.
func (c *cli) path() string {
	if p := strings.TrimSpace(c.configPath); p != "" {
		return p
	}
	return config.DefaultPath()
}

// load reads the configuration (ENV > file > defaults) and configures logging.
func (c *cli) load() error {
	// Safe defaults until the config is known.
	if err := log.Configure(log.Config{Level: "info", Output: os.Stderr, Service: "tunewatch", Version: version.Version}); err != nil {
		return err
	}

	cfg, err := config.NewLoader(c.path(), version.Version).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	c.cfg = cfg

	if err := log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Output:  os.Stderr,
		Service: "tunewatch",
		Version: cfg.Version,
		File:    cfg.Log.File,
	}); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	logger := log.WithComponent("cli")
	logger.Debug().
		Str(log.FieldEvent, "config.loaded").
		Str(log.FieldPath, c.path()).
		Fields(cfg.LogFields()).
		Msg("configuration loaded")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
