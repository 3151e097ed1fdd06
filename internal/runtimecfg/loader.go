package runtimecfg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abhisek/mentorloop/internal/store"
)

// Loader reads and publishes artifacts through the artifact repository.
type Loader struct {
	repo   store.ArtifactRepo
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(repo store.ArtifactRepo, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{repo: repo, logger: logger}
}

// Active returns the latest published artifact. It never fails: a missing
// or unreadable artifact yields Defaults().
func (l *Loader) Active(ctx context.Context) Artifact {
	rec, err := l.repo.Latest(ctx)
	if err != nil {
		l.logger.Warn("load runtime artifact, using defaults", "error", err)
		return Defaults()
	}
	if rec == nil {
		return Defaults()
	}
	a, err := Decode(rec.Data)
	if err != nil {
		l.logger.Warn("decode runtime artifact, using defaults", "version", rec.Version, "error", err)
		return Defaults()
	}
	a.Version = rec.Version
	return a
}

// Get returns a specific version.
func (l *Loader) Get(ctx context.Context, version string) (Artifact, error) {
	rec, err := l.repo.Get(ctx, version)
	if err != nil {
		return Artifact{}, err
	}
	a, err := Decode(rec.Data)
	if err != nil {
		return Artifact{}, err
	}
	a.Version = rec.Version
	return a, nil
}

// Publish clamps a, stores it as an immutable version and makes it the latest.
func (l *Loader) Publish(ctx context.Context, a Artifact) error {
	a.Clamp()
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", a.Version, err)
	}
	return l.repo.Publish(ctx, store.ArtifactRecord{
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		Data:      data,
	})
}
