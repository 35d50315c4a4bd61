// Package server initializes and runs the main application server.
// It connects the storage backends, wires the session service and the HTTP
// endpoint, runs the periodic refresh-token sweep, and handles graceful
// shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cordoeats/backend/internal/logging"
	"github.com/cordoeats/backend/internal/server/auth"
	"github.com/cordoeats/backend/internal/server/config"
	"github.com/cordoeats/backend/internal/server/httpapi"
	"github.com/cordoeats/backend/internal/server/repositories/tenants"
	"github.com/cordoeats/backend/internal/server/repositories/users"
	"github.com/cordoeats/backend/internal/server/services"
	"github.com/cordoeats/backend/internal/server/tokenstore"
)

const tokenCleanupInterval = 1 * time.Hour

type App struct {
	config   *config.Config
	logger   logging.Logger
	client   *mongo.Client
	sessions *services.SessionService
	httpSrv  *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	client, err := mongo.Connect(options.Client().ApplyURI(c.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db := client.Database(c.DatabaseName)

	var store tokenstore.Store
	if c.RedisAddr != "" {
		store = tokenstore.NewRedisStore(
			redis.NewClient(&redis.Options{Addr: c.RedisAddr}),
			c.RefreshTokenValidityDuration,
		)
	} else {
		store = tokenstore.NewMemoryStore(c.RefreshTokenValidityDuration)
	}

	sessions := services.NewSessionService(
		users.NewMongoRepository(db),
		tenants.NewMongoRepository(db),
		store,
		auth.NewHasher(0),
		auth.NewTokenCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration),
		logger,
	)

	httpSrv := httpapi.NewServer(c.EndpointAddrHTTP, logger, sessions)

	return &App{config: c, logger: logger, client: client, sessions: sessions, httpSrv: httpSrv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpSrv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startTokenCleanup sweeps expired refresh tokens on a fixed schedule until
// the context is cancelled.
func (app *App) startTokenCleanup(ctx context.Context) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.sessions.CleanupExpiredTokens(ctx); err != nil {
				app.logger.Error(ctx, "token cleanup failed", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startTokenCleanup(ctx)
	}()

	wg.Wait()

	if err := app.client.Disconnect(context.Background()); err != nil {
		app.logger.Error(ctx, "db disconnect failed", "error", err)
	}
}
