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
	"time"

	"github.com/iudanet/listsync/internal/server"
	"github.com/iudanet/listsync/internal/server/handlers"
	"github.com/iudanet/listsync/internal/server/storage/sqlite"
	"github.com/iudanet/listsync/internal/validation"
)

// secretEnv - переменная окружения с секретом подписи токенов
const secretEnv = "LISTSYNC_JWT_SECRET"

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	defaults := server.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", defaults.Addr, "Listen address")
	dbPath := flag.String("db", "listsync-server.db", "Path to SQLite database")
	secret := flag.String("jwt-secret", "", "JWT signing secret (default $"+secretEnv+")")
	tokenTTL := flag.Duration("token-ttl", defaults.JWT.AccessTokenTTL, "Lifetime of issued tokens")
	rateLimit := flag.Int("rate-limit", defaults.RateLimit, "Requests per user per minute, 0 disables the limit")
	issueToken := flag.String("issue-token", "", "Print an access token for the given user id and exit")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if *secret == "" {
		*secret = os.Getenv(secretEnv)
	}
	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: JWT secret required, set %s or use -jwt-secret\n", secretEnv)
		os.Exit(1)
	}

	cfg := defaults
	cfg.Addr = *addr
	cfg.Version = Version
	cfg.JWT = handlers.JWTConfig{Secret: []byte(*secret), AccessTokenTTL: *tokenTTL}
	cfg.RateLimit = *rateLimit

	if *issueToken != "" {
		if err := validation.ValidateUserID(*issueToken); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		token, expiresAt, err := handlers.GenerateAccessToken(cfg.JWT, *issueToken, *issueToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *dbPath, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg server.Config, dbPath string, logger *slog.Logger) (err error) {
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close storage: %w", cerr))
		}
	}()

	return server.New(cfg, store, logger).Run(ctx)
}

func printVersion() {
	fmt.Printf("listsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
