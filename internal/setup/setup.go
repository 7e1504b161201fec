// Package setup bootstraps the client's dependencies in order: config,
// logging, HTTP clients, API layer, entity cache, session store and the
// mutation coordinator.
package setup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/internal/mutation"
	"github.com/chirpnet/chirp/internal/notify"
	"github.com/chirpnet/chirp/internal/session"
	"github.com/chirpnet/chirp/internal/setup/client"
	"github.com/chirpnet/chirp/internal/setup/config"
	"github.com/chirpnet/chirp/pkg/utils"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App bundles all core dependencies needed by the client.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Clients   *client.Clients
	API       *api.Client
	Cache     *cache.Cache
	Store     session.Store
	Notifier  *notify.Channel
	Mutations *mutation.Coordinator

	redisClient rueidis.Client
}

// InitializeApp bootstraps all client dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}

	clients := client.GetClients(cfg, logger)
	apiClient := api.NewClient(cfg.API.BaseURL, clients.Reads, clients.Writes, logger)

	entityCache := cache.New(logger)
	entityCache.SetRetryOptions(utils.RetryOptions{
		InitialInterval: time.Duration(cfg.Revalidate.InitialDelay) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.Revalidate.MaxDelay) * time.Millisecond,
		MaxElapsedTime:  time.Duration(cfg.Revalidate.MaxElapsed) * time.Millisecond,
		MaxRetries:      cfg.Revalidate.MaxRetries,
	})
	RegisterFetchers(entityCache, apiClient)

	// Session store falls back to process memory when Redis is not
	// configured; the session then lasts for the process lifetime.
	var (
		store       session.Store
		redisClient rueidis.Client
	)

	if cfg.Redis.Enabled {
		redisClient, err = rueidis.NewClient(rueidis.ClientOption{
			InitAddress: []string{net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port))},
			Username:    cfg.Redis.Username,
			Password:    cfg.Redis.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		store = session.NewRedisStore(redisClient, logger)
	} else {
		store = session.NewMemoryStore()
	}

	// Resume the previous session's cookie so the first request after a
	// restart is already credentialed.
	if cookie, err := store.LoadCookie(ctx); err == nil && cookie != "" {
		clients.Session.SetCookie(cookie)
	} else if err != nil && !errors.Is(err, session.ErrNotFound) {
		logger.Warn("Failed to load persisted session cookie", zap.Error(err))
	}

	notifier := notify.NewChannel(64)
	mutations := mutation.New(
		apiClient, entityCache, store, clients.Session,
		notify.NewMulti(notifier, notify.NewLogger(logger)), logger,
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Clients:     clients,
		API:         apiClient,
		Cache:       entityCache,
		Store:       store,
		Notifier:    notifier,
		Mutations:   mutations,
		redisClient: redisClient,
	}, nil
}

// Cleanup releases held connections and flushes the logger.
func (a *App) Cleanup() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}

	_ = a.Logger.Sync()
}

// newLogger builds the application logger from configuration.
func newLogger(cfg *config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
