// Package config assembles mentorloop settings from defaults, YAML files,
// a .env file and MENTORLOOP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/mentorloop/internal/chat"
	"github.com/abhisek/mentorloop/internal/generation"
	"github.com/abhisek/mentorloop/internal/ingest"
	"github.com/abhisek/mentorloop/internal/interview"
	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/tasks"
	"github.com/abhisek/mentorloop/internal/training"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	// DBPath is the SQLite file. Empty means store.DefaultDBPath.
	DBPath string `yaml:"db_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	LLM        llm.Config           `yaml:"llm"`
	Embedding  llm.EmbeddingConfig  `yaml:"embedding"`
	Chat       chat.Config          `yaml:"chat"`
	Generation generation.Config    `yaml:"generation"`
	Training   TrainingConfig       `yaml:"training"`
	Queue      tasks.Config         `yaml:"queue"`
	Interview  interview.DrawConfig `yaml:"interview"`
	Ingest     ingest.Config        `yaml:"ingest"`
}

// TrainingConfig controls the periodic training job.
type TrainingConfig struct {
	// Window is how many recent signals one run aggregates.
	Window   int           `yaml:"window"`
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:   "warn",
		LLM:        llm.DefaultConfig(),
		Embedding:  llm.DefaultEmbeddingConfig(),
		Chat:       chat.DefaultConfig(),
		Generation: generation.DefaultConfig(),
		Training: TrainingConfig{
			Window:   training.DefaultWindow,
			Schedule: training.DefaultSchedule,
			Timeout:  5 * time.Minute,
		},
		Queue:     tasks.DefaultConfig(),
		Interview: interview.DefaultDrawConfig(),
		Ingest:    ingest.DefaultConfig(),
	}
}

// Load layers, lowest first: defaults, ~/.config/mentorloop/config.yaml,
// ./mentorloop.yaml (or $MENTORLOOP_CONFIG), .env, then the environment.
// Missing files are skipped; malformed ones are an error.
func Load() (Config, error) {
	cfg := Default()

	for _, path := range []string{homeConfigPath(), projectConfigPath()} {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func homeConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mentorloop", "config.yaml")
}

func projectConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("MENTORLOOP_CONFIG")); p != "" {
		return p
	}
	return "mentorloop.yaml"
}

// mergeFile decodes path over cfg, so only keys present in the file change.
func mergeFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("MENTORLOOP_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MENTORLOOP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MENTORLOOP_TRAINING_SCHEDULE"); v != "" {
		cfg.Training.Schedule = v
	}
	if v := os.Getenv("MENTORLOOP_DAILY_QUOTA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MENTORLOOP_DAILY_QUOTA: %w", err)
		}
		cfg.Chat.DailyQuota = n
	}

	explicit := os.Getenv("MENTORLOOP_LLM_PROVIDER") != ""
	llm.ApplyEnv(&cfg.LLM)
	if !explicit && cfg.LLM.Validate() != nil {
		if found, ok := llm.DiscoverConfig(); ok {
			found.Retry = cfg.LLM.Retry
			found.Timeout = cfg.LLM.Timeout
			cfg.LLM = found
		}
	}
	llm.ApplyEmbeddingEnv(&cfg.Embedding, cfg.LLM)
	return nil
}

// Validate reports the first setting that would make the tutor unusable.
func (c Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if c.Chat.DailyQuota <= 0 {
		return fmt.Errorf("chat.daily_quota must be positive, got %d", c.Chat.DailyQuota)
	}
	if c.Training.Window <= 0 {
		return fmt.Errorf("training.window must be positive, got %d", c.Training.Window)
	}
	if _, err := cron.ParseStandard(c.Training.Schedule); err != nil {
		return fmt.Errorf("training.schedule %q: %w", c.Training.Schedule, err)
	}
	d := c.Interview
	if d.Size <= 0 || d.Beginner < 0 || d.Intermediate < 0 || d.Advanced < 0 {
		return fmt.Errorf("interview draw sizes must be positive")
	}
	if d.Beginner+d.Intermediate+d.Advanced > d.Size {
		return fmt.Errorf("interview quotas %d/%d/%d exceed session size %d", d.Beginner, d.Intermediate, d.Advanced, d.Size)
	}
	return nil
}

// NewLogger returns a text logger on w at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(c.LogLevel)}))
}

// ParseLevel maps a level name to a slog level. Unknown names mean warn.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelWarn
	}
	return l
}
