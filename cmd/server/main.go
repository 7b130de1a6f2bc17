package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cryptoedu/tutor/internal/ai"
	"github.com/cryptoedu/tutor/internal/content"
	"github.com/cryptoedu/tutor/internal/platform/cache"
	"github.com/cryptoedu/tutor/internal/platform/config"
	"github.com/cryptoedu/tutor/internal/platform/database"
	"github.com/cryptoedu/tutor/internal/platform/logging"
	"github.com/cryptoedu/tutor/internal/progress"
	"github.com/cryptoedu/tutor/internal/quiz"
	"github.com/cryptoedu/tutor/internal/server"
	"github.com/cryptoedu/tutor/internal/session"
	"github.com/cryptoedu/tutor/internal/tutor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logging.New(cfg.Log)

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "ai", cfg.HasAIProvider())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		slog.Error("server error", "error", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app is the wired service. close releases everything newApp opened.
type app struct {
	handler  http.Handler
	sessions *session.Manager
	writes   *progress.AsyncSink
	sweeper  func() // stops the idle session sweeper
	closers  []func()
}

// newApp connects the optional database and cache and builds the service on
// top of them. Without a database URL everything runs in memory; a cache that
// cannot be reached is skipped.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := make(map[string]server.HealthChecker)

	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		pool = db.Pool
		checks["database"] = db
	} else {
		slog.Warn("no database configured, progress is kept in memory")
	}

	var rdb *redis.Client
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL, cache.Options{})
		if err != nil {
			slog.Warn("cache unavailable, continuing without it", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = c.Close() })
			rdb = c.Client
			checks["cache"] = c
		}
	}

	store, err := progressStore(pool, rdb, cfg.Progress)
	if err != nil {
		a.close()
		return nil, err
	}
	a.writes = progress.NewAsyncSink(store, cfg.Progress.WriteTimeout)

	lib, err := content.NewLibrary(cfg.ContentPath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	catalog := content.NewService(lib, store)
	slog.Info("lessons loaded", "count", len(catalog.Lessons()), "path", cfg.ContentPath)

	var budget ai.BudgetChecker = ai.NewInMemoryBudget(cfg.Quiz.DailyTokenBudget)
	if rdb != nil {
		budget = ai.NewRedisBudget(rdb, cfg.Quiz.DailyTokenBudget)
	}
	router := newAIRouter(cfg.AI)

	sessCfg := session.Config{
		Content:  catalog,
		Progress: a.writes,
		Events:   session.NopEventLogger{},
	}
	if router.HasProvider() {
		sessCfg.Generator = quiz.NewGenerator(quiz.GeneratorConfig{
			AI:            router,
			Budget:        budget,
			QuestionCount: cfg.Quiz.QuestionCount,
			Timeout:       cfg.Quiz.GenerationTimeout,
		})
	} else {
		slog.Warn("no AI provider configured, challenge quizzes use the built-in question")
	}
	if pool != nil {
		sessCfg.Events = session.NewPostgresEventLogger(pool)
	}
	a.sessions = session.NewManager(sessCfg)
	a.sweeper = startSweeper(ctx, a.sessions, cfg.Session.IdleTimeout)

	var conversations tutor.ConversationStore = tutor.NewMemoryStore()
	if pool != nil {
		pg, err := tutor.NewPostgresStore(pool)
		if err != nil {
			a.close()
			return nil, err
		}
		conversations = pg
	}
	chat := tutor.New(tutor.Config{
		AI:                    router,
		Store:                 conversations,
		Budget:                budget,
		CompactThreshold:      cfg.Tutor.CompactThreshold,
		CompactTokenThreshold: cfg.Tutor.CompactTokenThreshold,
		KeepRecent:            cfg.Tutor.KeepRecent,
	})

	a.handler = server.New(server.Config{
		Content:  catalog,
		Sessions: a.sessions,
		Progress: store,
		Tutor:    chat,
		Checks:   checks,
	}).Handler()
	return a, nil
}

// close ends live sessions, drains pending progress writes and then closes
// connections in reverse order of opening.
func (a *app) close() {
	if a.sweeper != nil {
		a.sweeper()
		a.sweeper = nil
	}
	if a.sessions != nil {
		a.sessions.CloseAll()
	}
	if a.writes != nil {
		a.writes.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// startSweeper runs the idle session sweeper until the returned stop function
// is called. It outlives ctx.
func startSweeper(ctx context.Context, sessions *session.Manager, idle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		sessions.RunSweeper(ctx, idle)
	}()
	return func() {
		cancel()
		<-done
	}
}

func progressStore(pool *pgxpool.Pool, rdb *redis.Client, cfg config.ProgressConfig) (progress.Store, error) {
	var store progress.Store = progress.NewMemoryStore()
	if pool != nil {
		pg, err := progress.NewPostgresStore(pool)
		if err != nil {
			return nil, fmt.Errorf("create progress store: %w", err)
		}
		store = pg
	}
	if rdb != nil {
		store = progress.NewCachedStore(store, rdb, cfg.CacheTTL)
	}
	return store, nil
}

// newAIRouter registers every configured provider. OpenAI is preferred for
// quiz generation because it honours JSON response mode.
func newAIRouter(cfg config.AIConfig) *ai.Router {
	router := ai.NewRouter()

	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, ai.WithDefaultModel(cfg.OpenAI.Model)))
		router.Prefer(ai.TaskQuizGeneration, "openai")
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey, ai.WithAnthropicModel(cfg.Anthropic.Model))
		if err != nil {
			slog.Warn("skipping anthropic provider", "error", err)
		} else {
			router.Register("anthropic", p)
		}
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey, ai.WithDefaultModel(cfg.OpenRouter.Model)))
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, ai.WithDefaultModel(cfg.Ollama.Model)))
	}
	return router
}
