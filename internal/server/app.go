// Package server wires the townsquare auth server together: storage,
// optional Redis, the public gin API and the internal gRPC SessionService.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/townsquare/internal/logging"
	"github.com/dmitrijs2005/townsquare/internal/server/cache"
	"github.com/dmitrijs2005/townsquare/internal/server/config"
	"github.com/dmitrijs2005/townsquare/internal/server/httpapi"
	"github.com/dmitrijs2005/townsquare/internal/server/metrics"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/townsquare/internal/server/services"

	gs "github.com/dmitrijs2005/townsquare/internal/server/grpc"
)

// openDB is swapped in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	auth    *services.AuthService
	avatars *services.AvatarService
}

// NewApp connects to Postgres (and Redis when configured), applies
// migrations if enabled and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if c.RunMigrations {
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
	}

	app := &App{config: c, logger: logger, db: db, metrics: metrics.New()}

	var opts []services.AuthOption
	if c.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = rdb
		opts = append(opts,
			services.WithSessionCache(cache.NewSessionCache(rdb)),
			services.WithLoginLimiter(cache.NewLoginLimiter(rdb, c.LoginMaxAttempts, c.LoginAttemptWindow)),
		)
	} else {
		logger.Info(ctx, "redis not configured, validation cache and login throttling disabled")
	}

	app.auth = services.NewAuthService(db, rm, c, logger, opts...)
	app.avatars = services.NewAvatarService(db, rm, c, logger)

	return app, nil
}

// Router builds the gin engine serving the public API.
func (app *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), httpapi.RequestID(), httpapi.AccessLog(app.logger, app.metrics))

	var pinger httpapi.Pinger
	if app.db != nil {
		pinger = app.db
	}

	handler := httpapi.NewAuthHandler(app.auth, app.avatars, app.metrics, app.logger)
	httpapi.Setup(router, handler, httpapi.NewHealthHandler(pinger), app.auth, app.metrics.Handler())
	httpapi.SetupAdmin(router, httpapi.NewAdminHandler(app.auth, app.logger), []byte(app.config.SecretKey))
	return router
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:         app.config.EndpointAddrHTTP,
		Handler:      app.Router(),
		ReadTimeout:  app.config.HTTPReadTimeout,
		WriteTimeout: app.config.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (app *App) startGRPCServer(ctx context.Context) error {
	return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.auth, app.metrics).Run(ctx)
}

// Run serves HTTP and gRPC until ctx is cancelled, a termination signal
// arrives or either server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.startHTTPServer(gctx) })
	g.Go(func() error { return app.startGRPCServer(gctx) })

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}
