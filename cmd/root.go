package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhisek/mentorloop/internal/app"
	"github.com/abhisek/mentorloop/internal/config"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long a command waits for background analysis
// before exiting.
const shutdownTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "mentorloop",
	Short: "Adaptive learning assistant",
	Long: "Mentorloop answers learner questions from ingested curriculum content, adapts to each learner's " +
		"profile, runs mock technical interviews and retunes itself from learning signals.",
	SilenceUsage: true,
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MENTORLOOP_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides MENTORLOOP_LOG_LEVEL)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the layered configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.LogLevel = l
	}
	return cfg, nil
}

// resolveDBPath returns the database path: --db flag, then config or
// MENTORLOOP_DB, then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore opens only the database, for commands that need no model.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// openApp builds the full service graph.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	return app.Open(cmd.Context(), cfg, dbPath, cfg.NewLogger(os.Stderr))
}

func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}

// closeApp drains background work and closes the store.
func closeApp(a *app.App) {
	ctx, cancel := shutdownContext()
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.Logger.Warn("shutdown", "error", err)
	}
}

func userFlag(cmd *cobra.Command) (string, error) {
	u, _ := cmd.Flags().GetString("user")
	if u == "" {
		u = os.Getenv("MENTORLOOP_USER")
	}
	if u == "" {
		return "", fmt.Errorf("--user (or MENTORLOOP_USER) is required")
	}
	return u, nil
}
