package main

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-topology/pkg/config"
	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/iotool/badgertool"
	"github.com/dd0wney/cluso-topology/pkg/iotool/nngtool"
	"github.com/dd0wney/cluso-topology/pkg/iotool/s3tool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// openTool builds the configured IO-Tool backend. The returned close
// function is never nil.
func openTool(ctx context.Context, cfg config.IOToolConfig, logger logging.Logger) (iotool.Tool, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return iotool.NewMemoryTool(), noop, nil

	case config.BackendBadger:
		bc := badgertool.DefaultConfig()
		bc.Path = cfg.Badger.Dir
		bc.InMemory = cfg.Badger.InMemory
		bc.GCInterval = cfg.Badger.GCInterval
		bc.Logger = logger
		tool, err := badgertool.Open(bc)
		if err != nil {
			return nil, nil, err
		}
		return tool, tool.Close, nil

	case config.BackendS3:
		tool, err := s3tool.Open(ctx, s3tool.Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			UsePathStyle:    cfg.S3.UsePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return tool, noop, nil

	case config.BackendNNG:
		client, err := nngtool.Dial(cfg.NNG.Addr, cfg.NNG.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown iotool backend %q", cfg.Backend)
	}
}
