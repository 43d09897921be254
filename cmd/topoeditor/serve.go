package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-topology/pkg/api"
	"github.com/dd0wney/cluso-topology/pkg/api/middleware"
	"github.com/dd0wney/cluso-topology/pkg/config"
	"github.com/dd0wney/cluso-topology/pkg/engine"
	"github.com/dd0wney/cluso-topology/pkg/events"
	"github.com/dd0wney/cluso-topology/pkg/graphsync"
	"github.com/dd0wney/cluso-topology/pkg/health"
	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/metrics"
	"github.com/dd0wney/cluso-topology/pkg/semgraph"
	"github.com/dd0wney/cluso-topology/pkg/server"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the topology editor HTTP API",
		Long: `Run the topology editor HTTP API.

Examples:
  topoeditor serve
  topoeditor serve --config topoeditor.yaml --addr :9090
  TOPO_IOTOOL_BACKEND=badger topoeditor serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// stack is every component behind the HTTP surface.
type stack struct {
	registry *metrics.Registry
	bus      *events.Bus
	store    *topology.Store
	sync     *graphsync.Synchronizer
	gateway  *iotool.Gateway
	engine   *engine.Engine
	health   *health.HealthChecker
	api      *api.Server
}

func buildStack(tool iotool.Tool, cfg *config.Config, logger logging.Logger) *stack {
	s := &stack{registry: metrics.NewRegistry()}
	s.registry.SetBuildInfo(Version, Commit)

	s.bus = events.NewBus(events.WithBuffer(cfg.Events.Buffer), events.WithMetrics(s.registry))
	s.store = topology.NewStore(topology.WithObserver(s.bus.Observer()))
	s.sync = graphsync.New(s.store, semgraph.NewModel(),
		graphsync.WithLogger(logger),
		graphsync.WithMetrics(s.registry))
	s.gateway = iotool.NewGateway(tool, iotool.WithLogger(logger), iotool.WithMetrics(s.registry))
	s.engine = engine.New(s.sync, s.gateway, engine.WithLogger(logger), engine.WithMetrics(s.registry))

	s.health = health.NewHealthChecker(health.WithVersion(Version))
	s.health.RegisterCheck("topology", health.TopologyCheck(s.store))
	s.health.RegisterCheck("graph", health.GraphCheck(s.sync))
	s.health.RegisterReadinessCheck("iotool", health.IOToolCheck(s.gateway))
	s.health.RegisterLivenessCheck("memory", health.MemoryCheck())

	s.api = api.NewServer(s.engine,
		api.WithLogger(logger),
		api.WithMetrics(s.registry),
		api.WithHealth(s.health),
		api.WithEvents(s.bus),
		api.WithCORS(middleware.WithOrigins(cfg.Server.AllowedOrigins)),
		api.WithVersion(Version, Commit))
	return s
}

func runServe(ctx context.Context, rootOpts *RootOptions, cfg *config.Config, logger *logging.JSONLogger) error {
	tool, closeTool, err := openTool(ctx, cfg.IOTool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeTool(); err != nil {
			logger.Warn("close iotool backend", logging.Error(err))
		}
	}()

	st := buildStack(tool, cfg, logger)

	gs := server.NewGracefulServer(server.Options{
		Addr:            cfg.Server.Addr,
		Handler:         st.api.Handler(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})
	// Closing the bus ends open websocket streams.
	gs.RegisterOnShutdown(st.bus.Shutdown)
	gs.SetConfigReloadFunc(func() error {
		next, err := config.Load(rootOpts.ConfigPath)
		if err != nil {
			return err
		}
		level := next.LogLevel()
		if rootOpts.LogLevel != "" {
			level = logging.ParseLevel(rootOpts.LogLevel)
		}
		logger.SetLevel(level)
		logger.Info("log level reloaded", logging.String("level", level.String()))
		return nil
	})

	logger.Info("topology editor starting",
		logging.String("version", Version),
		logging.String("iotool", cfg.IOTool.Backend))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gs.Run(gctx) })
	g.Go(func() error { return st.api.RunMetricsLoop(gctx, 0) })
	return g.Wait()
}
