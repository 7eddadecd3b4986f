package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"pharmaflow-tutor/internal/auth"
	"pharmaflow-tutor/internal/config"
	"pharmaflow-tutor/internal/core"
	"pharmaflow-tutor/internal/db"
	httpserver "pharmaflow-tutor/internal/http"
	"pharmaflow-tutor/internal/llm"
	"pharmaflow-tutor/internal/scenario"
	"pharmaflow-tutor/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}

	catalog, err := scenario.NewCatalog()
	if err != nil {
		slog.Error("failed to load scenario catalog", "error", err)
		os.Exit(1)
	}
	if cfg.ScenarioDir != "" {
		if err := catalog.LoadFromDir(cfg.ScenarioDir); err != nil {
			slog.Error("failed to load scenario directory", "dir", cfg.ScenarioDir, "error", err)
			os.Exit(1)
		}
	}

	sessions := openSessionStore(cfg)
	defer sessions.Close()

	// OpenAI client reads OPENAI_API_KEY and model overrides from the env.
	client := llm.NewOpenAIClient()
	engine := core.NewEngine(client, catalog)
	judge := core.NewJudge(client)
	authSvc := auth.NewService(repo)

	srv := httpserver.NewServer(repo, authSvc, engine, judge, sessions, catalog, client, cfg.Language)

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr, "scenarios", len(catalog.Titles()))
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openRepository connects to Postgres when DATABASE_URL is set and falls
// back to the in-memory repository otherwise.
func openRepository(cfg *config.Config) (db.Repository, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory repository; accounts and ledger will not survive a restart")
		return db.NewMemoryRepository(), nil
	}

	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		return nil, err
	}
	return db.NewPostgresRepository(dbConn), nil
}

// openSessionStore selects the Redis session store when REDIS_ADDR is set.
func openSessionStore(cfg *config.Config) session.Store {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	slog.Info("using redis session store", "addr", cfg.RedisAddr)
	return session.NewRedisStore(client, cfg.SessionTTL)
}
