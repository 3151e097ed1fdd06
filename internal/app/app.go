// Package app builds the tutor's object graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/mentorloop/internal/behavior"
	"github.com/abhisek/mentorloop/internal/chat"
	"github.com/abhisek/mentorloop/internal/config"
	"github.com/abhisek/mentorloop/internal/generation"
	"github.com/abhisek/mentorloop/internal/ingest"
	"github.com/abhisek/mentorloop/internal/intent"
	"github.com/abhisek/mentorloop/internal/interview"
	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/observer"
	"github.com/abhisek/mentorloop/internal/profile"
	"github.com/abhisek/mentorloop/internal/retrieval"
	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/abhisek/mentorloop/internal/tasks"
	"github.com/abhisek/mentorloop/internal/training"
	"github.com/abhisek/mentorloop/internal/vectorstore"
)

// App holds every long-lived component of one process.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Store     *store.Store
	Provider  llm.Provider
	Embedder  llm.Embedder
	Queue     *tasks.Queue
	Artifacts *runtimecfg.Loader
	Vectors   *vectorstore.Store

	Chat      *chat.Service
	Feedback  *observer.FeedbackRecorder
	Profiles  *profile.Updater
	Training  *training.Controller
	Interview *interview.Machine
	Ingester  *ingest.Ingester
}

// Open validates cfg, opens the store at dbPath and wires all services.
// The caller must Close the App.
func Open(ctx context.Context, cfg config.Config, dbPath string, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Provider:  provider,
		Embedder:  embedder,
		Queue:     tasks.New(cfg.Queue, logger),
		Artifacts: runtimecfg.NewLoader(st.ArtifactRepo(), logger),
		Vectors:   vectorstore.New(st.ChunkRepo()),
	}
	a.wire()
	return a, nil
}

func (a *App) wire() {
	st, cfg, logger := a.Store, a.Config, a.Logger

	classifier := intent.NewClassifier(a.Provider, intent.DefaultConfig(), logger)
	retriever := retrieval.NewController(classifier, a.Embedder, a.Vectors, a.Artifacts, logger)
	a.Profiles = profile.NewUpdater(a.Provider, st.ProfileRepo(), logger)

	a.Chat = chat.New(chat.Deps{
		Profiles:  st.ProfileRepo(),
		Usage:     st.UsageRepo(),
		Turns:     st.TurnRepo(),
		Retriever: retriever,
		Adapter:   behavior.NewAdapter(a.Artifacts),
		Generator: generation.NewOrchestrator(a.Provider, cfg.Generation, logger),
		Observer:  observer.New(a.Provider, st.SignalRepo(), a.Queue, logger),
		Profiler:  a.Profiles,
		Queue:     a.Queue,
	}, cfg.Chat, logger)

	a.Feedback = observer.NewFeedbackRecorder(a.Provider, st.FeedbackRepo(), st.SignalRepo(), a.Queue, logger)
	a.Training = training.NewController(st.SignalRepo(), a.Artifacts, cfg.Training.Window, logger)
	a.Interview = interview.NewMachine(st.QuestionRepo(), st.SessionRepo(), interview.NewLLMGrader(a.Provider), cfg.Interview, logger)
	a.Ingester = ingest.New(a.Embedder, a.Vectors, st.ChunkRepo(), cfg.Ingest, logger)
}

// Close waits for background work until ctx expires, then closes the store.
func (a *App) Close(ctx context.Context) error {
	qerr := a.Queue.Close(ctx)
	return errors.Join(qerr, a.Store.Close())
}
