package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hashfleet/hashfleet/config"
	hflog "github.com/hashfleet/hashfleet/log"
	"github.com/hashfleet/hashfleet/password"
	"github.com/hashfleet/hashfleet/server"
	"github.com/hashfleet/hashfleet/session"
	"github.com/hashfleet/hashfleet/storage"
	"github.com/hashfleet/hashfleet/storage/mongodb"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	hflog.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Info().Msg("starting hashfleet server")

	ctx := context.Background()

	users, projects, hashlists, err := buildRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	sessionStore, closeSessions, err := buildSessionStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session store")
	}
	defer closeSessions()

	hasher := password.NewBcryptHasher()
	if err := storage.SeedDefaultAdmin(ctx, users, hasher); err != nil {
		log.Fatal().Err(err).Msg("failed to seed default admin")
	}

	srv, err := server.New(server.Options{
		Config:    cfg,
		Users:     users,
		Projects:  projects,
		Hashlists: hashlists,
		Hasher:    hasher,
		Sessions: &session.CookieHandler{
			Store:     sessionStore,
			Secret:    []byte(cfg.SessionSecret),
			Lifetime:  cfg.SessionLifetime(),
			SkipPaths: server.SkipPaths(),
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		if err := srv.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}

func buildRepositories(ctx context.Context, cfg *config.ServerConfig) (storage.UserRepository, storage.ProjectRepository, storage.HashlistRepository, error) {
	switch cfg.StorageBackend {
	case "memory":
		log.Warn().Msg("using in-memory storage, all data is lost on restart")
		return storage.NewMemoryUserRepository(),
			storage.NewMemoryProjectRepository(),
			storage.NewMemoryHashlistRepository(),
			nil
	case "mongodb":
		db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, nil, err
		}
		users, err := mongodb.NewUserRepository(ctx, db)
		if err != nil {
			return nil, nil, nil, err
		}
		projects, err := mongodb.NewProjectRepository(ctx, db)
		if err != nil {
			return nil, nil, nil, err
		}
		hashlists, err := mongodb.NewHashlistRepository(ctx, db)
		if err != nil {
			return nil, nil, nil, err
		}
		return users, projects, hashlists, nil
	default:
		return nil, nil, nil, errors.New("unknown STORAGE_BACKEND: " + cfg.StorageBackend)
	}
}

func buildSessionStore(ctx context.Context, cfg *config.ServerConfig) (session.Store, func(), error) {
	switch cfg.SessionBackend {
	case "memory":
		store := session.NewMemoryStore()
		return store, store.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil
	default:
		return nil, nil, errors.New("unknown SESSION_BACKEND: " + cfg.SessionBackend)
	}
}
