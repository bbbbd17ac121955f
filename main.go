// deskmate - terminal client for a streaming chat assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/deskmate/internal/cli"
	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/kvstore"
	"github.com/jeranaias/deskmate/internal/logging"
	"github.com/jeranaias/deskmate/internal/modelconfig"
	"github.com/jeranaias/deskmate/internal/session"
	"github.com/jeranaias/deskmate/internal/transport"
	"github.com/jeranaias/deskmate/internal/ui/chat"
	"github.com/jeranaias/deskmate/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])
	if err := run(cmd, args); err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	case cli.CmdVersion:
		return cli.HandleVersion(os.Stdout, args)
	case cli.CmdUnknown:
		cli.PrintUsage(os.Stderr)
		return &cli.UsageError{Reason: "unknown command: " + args.Command}
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if cmd == cli.CmdConfig {
		// Needs no store or logger, and must work with a broken database.
		return cli.HandleConfig(&cli.Env{Config: cfg, Stdout: os.Stdout, Stderr: os.Stderr}, args)
	}

	// The TUI owns the terminal, so its logs only go to the file.
	logOpts := logOptions(cfg)
	if cmd == cli.CmdTUI {
		logOpts.Console = false
	}
	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logCloser.Close()

	kv, err := kvstore.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Error("failed to open store", zap.String("path", cfg.Storage.DBPath), zap.Error(err))
		return fmt.Errorf("failed to open %s: %w", cfg.Storage.DBPath, err)
	}
	defer kv.Close()

	models := modelconfig.NewStore(kv)
	env := &cli.Env{
		Config:   cfg,
		Logger:   logger,
		Models:   models,
		Resolver: models.Resolver(),
		Transport: transport.NewHTTPTransport(transport.Config{
			URL:            cfg.ChatURL(),
			ConnectTimeout: cfg.ConnectTimeout(),
		}, logger.Named("transport")),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	logger.Info("deskmate starting",
		zap.String("version", Version),
		zap.String("service", cfg.ChatURL()),
		zap.String("db", kv.Path()))

	ctx := context.Background()
	switch cmd {
	case cli.CmdAsk:
		return cli.HandleAsk(ctx, env, args)
	case cli.CmdShell:
		return cli.HandleShell(ctx, env, args)
	case cli.CmdModel:
		return cli.HandleModel(ctx, env, args)
	}
	return runTUI(ctx, env, args)
}

func loadConfig(args cli.Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

func logOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		Level:      cfg.Log.Level,
		Dir:        cfg.Log.Dir,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Console:    cfg.Log.Console,
	}
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(ctx context.Context, env *cli.Env, args cli.Args) error {
	cfg := env.Config
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The program is created after the model it runs, so the publisher
	// reaches it through this variable. Nothing publishes before Run.
	var program *tea.Program
	publisher := chat.NewPublisher(func(msg tea.Msg) { program.Send(msg) }, cfg.UI.MaxFPS)

	ctrl := session.New(session.Options{
		Resolver:         env.Resolver,
		Transport:        env.Transport,
		Publisher:        publisher,
		Logger:           env.Logger,
		Mode:             cfg.Chat.Mode,
		PlaybackInterval: cfg.PlaybackInterval(),
		MaxMalformed:     cfg.Chat.MaxMalformedLines,
		EventBuffer:      cfg.Chat.EventBuffer,
	})

	modelName := ""
	if mc, err := env.Resolver.Resolve(ctx); err == nil {
		modelName = mc.Model
	}

	m := chat.New(chat.Options{
		Session:    ctrl,
		Publisher:  publisher,
		Theme:      styles.NewTheme(),
		ModelName:  modelName,
		ServiceURL: cfg.Service.URL,
		ShowStats:  cfg.UI.ShowStats,
	})

	program = tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	watchConfig(ctx, env.Logger, args, program)

	_, err := program.Run()
	// Stop waits for a final publish, which Send drops once the program
	// has exited.
	ctrl.Close()
	if err != nil && err != tea.ErrProgramKilled {
		return fmt.Errorf("error running deskmate: %w", err)
	}
	return nil
}

// watchConfig delivers config.toml edits to the running program.
func watchConfig(ctx context.Context, logger *zap.Logger, args cli.Args, program *tea.Program) {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return
		}
	}

	onChange := func(cfg *config.Config) {
		logger.Info("configuration reloaded", zap.String("path", path))
		program.Send(chat.ConfigReloadedMsg{Config: cfg})
	}
	onError := func(err error) {
		logger.Warn("configuration reload failed", zap.Error(err))
		program.Send(chat.StatusMsg{Text: "Config not reloaded: " + err.Error()})
	}
	if err := config.Watch(ctx, path, onChange, onError); err != nil {
		logger.Warn("config watcher disabled", zap.Error(err))
	}
}
