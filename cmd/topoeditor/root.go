package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-topology/pkg/config"
	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// Output receives log lines. Defaults to stderr.
	Output io.Writer
}

// NewRootCommand creates the root command for the topoeditor CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Output: os.Stderr}

	cmd := &cobra.Command{
		Use:   "topoeditor",
		Short: "Network topology editor engine",
		Long: `topoeditor keeps a network topology and its semantic graph consistent
and persists topologies through a pluggable IO-Tool backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewIOToolCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// load reads the configuration and builds the process logger from it.
func (o *RootOptions) load() (*config.Config, *logging.JSONLogger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}

	logger := logging.NewJSONLogger(o.Output, cfg.LogLevel())
	logging.SetDefaultLogger(logger)
	return cfg, logger, nil
}
