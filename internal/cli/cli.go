// Package cli provides the command-line interface for the static development server.
// It layers an optional YAML configuration file, environment variables and flags.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/clean-dependency-project/devserve/internal/config"
	"github.com/clean-dependency-project/devserve/internal/logger"
	"github.com/clean-dependency-project/devserve/internal/server"
	"github.com/clean-dependency-project/devserve/internal/version"
)

// NewApp creates and configures the main CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:      "devserve",
		Usage:     "Serve a static site from a local directory",
		UsageText: "devserve [options] [root]",
		Version:   version.String(),
		Authors: []*cli.Author{
			{
				Name: "Clean Dependency Project",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Usage:   "directory to serve (the positional argument takes precedence)",
				Value:   config.DefaultRoot,
				EnvVars: []string{"DEVSERVE_ROOT"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultPort,
				Usage:   "port to listen on (0 picks a free port)",
				EnvVars: []string{"DEVSERVE_PORT"},
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "interface to bind (empty binds all interfaces)",
				EnvVars: []string{"DEVSERVE_HOST"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to an optional YAML configuration file",
				EnvVars: []string{"DEVSERVE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "chunk-size",
				Value:   config.DefaultChunkSize.String(),
				Usage:   "streaming buffer size (e.g. 32KiB, 1MiB)",
				EnvVars: []string{"DEVSERVE_CHUNK_SIZE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   config.DefaultLogLevel,
				Usage:   "log level for structured output (debug, info, warn, error)",
				EnvVars: []string{"DEVSERVE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   config.DefaultLogFormat,
				Usage:   "log format (json, text)",
				EnvVars: []string{"DEVSERVE_LOG_FORMAT"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored startup output (NO_COLOR is also honored)",
			},
		},
		Action: serve,
	}
}

// loadOptions layers defaults, the config file and explicitly set flags.
func loadOptions(c *cli.Context) (config.Options, error) {
	opts := config.DefaultOptions()
	args, err := applyTrailingFlags(c)
	if err != nil {
		return opts, err
	}
	if len(args) > 1 {
		return opts, fmt.Errorf("expected at most one root directory argument, got %d", len(args))
	}

	if path := c.String("config"); path != "" {
		if err := opts.LoadFile(path); err != nil {
			return opts, err
		}
	}

	if c.IsSet("root") {
		opts.Root = c.String("root")
	}
	if len(args) == 1 {
		opts.Root = args[0]
	}
	if c.IsSet("port") {
		opts.Port = c.Int("port")
	}
	if c.IsSet("host") {
		opts.Host = c.String("host")
	}
	if c.IsSet("chunk-size") {
		if err := opts.ChunkSize.Set(c.String("chunk-size")); err != nil {
			return opts, &config.ConfigError{Field: "chunk size", Value: c.String("chunk-size"), Err: err}
		}
	}
	if c.IsSet("log-level") {
		opts.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		opts.Log.Format = c.String("log-format")
	}
	return opts, nil
}

// serve validates the configuration, binds the listener and blocks until
// the context is cancelled or a termination signal arrives.
func serve(c *cli.Context) error {
	opts, err := loadOptions(c)
	if err != nil {
		return err
	}
	log, err := logger.New(c.App.ErrWriter, opts.Log.Level, opts.Log.Format)
	if err != nil {
		return &config.ConfigError{Field: "logging", Err: err}
	}

	// Validation happens before anything is bound.
	cfg, err := config.New(opts)
	if err != nil {
		return err
	}

	srv := server.New(cfg, nil, log)
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	log.Debug("server starting",
		"version", version.String(),
		"development", version.IsDevelopment(),
		"addr", ln.Addr().String(),
		"root", cfg.Root(),
		"chunk_size", config.ByteSize(cfg.ChunkSize()).String())
	printReady(c.App.Writer, server.URL(ln.Addr()), cfg.Root(), !c.Bool("no-color"))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, ln)
}
