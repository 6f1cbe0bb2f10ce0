package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/listsync/internal/client/auth"
	"github.com/iudanet/listsync/internal/client/cli"
	"github.com/iudanet/listsync/internal/client/engine"
	"github.com/iudanet/listsync/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "listsync.db", "Path to local database")
	token := flag.String("token", "", "Access token (not recommended, use env var or file)")
	tokenFile := flag.String("token-file", "", "Path to file containing the access token")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	console := iocli.NewStdio()

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(console)
		os.Exit(1)
	}

	command := args[0]
	if !cli.Known(command) {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		cli.PrintUsage(console)
		os.Exit(1)
	}

	// Логи идут в stderr, чтобы не смешиваться с выводом команд
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, console, command, args[1:], engine.Options{
		ServerURL: *serverURL,
		DBPath:    *dbPath,
		Config:    engine.DefaultConfig(),
	}, auth.TokenSources{FromFile: *tokenFile, FromArgs: *token}, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, console iocli.IO, command string, args []string, opts engine.Options, sources auth.TokenSources, logger *slog.Logger) error {
	token, err := auth.ResolveToken(sources, console)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return fmt.Errorf("access token required, set %s or use -token-file", auth.TokenEnv)
		}
		return err
	}
	opts.Token = token

	e, err := engine.Open(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	return cli.New(console, e).Run(ctx, command, args)
}

func printVersion() {
	fmt.Printf("listsync client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
