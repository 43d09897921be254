package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-topology/pkg/config"
	"github.com/dd0wney/cluso-topology/pkg/iotool/nngtool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// NewIOToolCommand groups IO-Tool subcommands.
func NewIOToolCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iotool",
		Short: "Standalone IO-Tool endpoints",
	}
	cmd.AddCommand(NewIOToolServeCommand(rootOpts))
	return cmd
}

// NewIOToolServeCommand exposes a local backend over the nng transport so
// editors configured with the nng backend can reach it.
func NewIOToolServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen, backend string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an IO-Tool backend over nng",
		Long: `Serve an IO-Tool backend over nng.

Examples:
  topoeditor iotool serve --backend badger
  topoeditor iotool serve --listen tcp://0.0.0.0:40899`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.IOTool.NNG.Addr
			}
			if backend != "" {
				cfg.IOTool.Backend = backend
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIOToolServe(ctx, listen, cfg.IOTool, logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "nng listen address (defaults to iotool.nng.addr)")
	cmd.Flags().StringVar(&backend, "backend", "", "backend to serve (memory|badger|s3)")
	return cmd
}

func runIOToolServe(ctx context.Context, listen string, cfg config.IOToolConfig, logger logging.Logger) error {
	if cfg.Backend == config.BackendNNG {
		return errors.New("iotool serve cannot serve the nng backend over itself")
	}

	tool, closeTool, err := openTool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTool()

	srv, err := nngtool.Listen(listen, tool, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	logger.Info("iotool endpoint listening",
		logging.String("addr", listen),
		logging.String("backend", cfg.Backend))
	return srv.Serve(ctx)
}
