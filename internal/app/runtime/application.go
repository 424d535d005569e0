// Package runtime wires configuration, storage, services and the HTTP server
// into a runnable application.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soundstack/soundstack/internal/app/httpapi"
	"github.com/soundstack/soundstack/internal/app/services/songs"
	"github.com/soundstack/soundstack/internal/app/services/users"
	"github.com/soundstack/soundstack/internal/app/storage"
	"github.com/soundstack/soundstack/internal/app/storage/memory"
	"github.com/soundstack/soundstack/internal/app/storage/postgres"
	"github.com/soundstack/soundstack/internal/app/system"
	"github.com/soundstack/soundstack/internal/cache"
	"github.com/soundstack/soundstack/internal/config"
	"github.com/soundstack/soundstack/internal/jobs"
	"github.com/soundstack/soundstack/internal/platform/migrations"
	"github.com/soundstack/soundstack/internal/session"
	"github.com/soundstack/soundstack/internal/upload"
	"github.com/soundstack/soundstack/internal/web"
	"github.com/soundstack/soundstack/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	throttleMaxIdle = 30 * time.Minute
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	api        *httpapi.Server
	songs      *songs.Service
	httpServer *http.Server
	manager    *system.Manager
	db         *sql.DB
	closers    []func() error

	ready    chan struct{}
	addrMu   sync.Mutex
	addr     net.Addr
	stopOnce sync.Once
}

// New builds the application from cfg. A DSN selects PostgreSQL (migrated to
// the latest version), otherwise data lives in memory. A Redis address
// selects the shared catalog cache.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.New(logger.LoggingConfig{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
	}
	a := &Application{cfg: cfg, log: log, ready: make(chan struct{}), manager: system.NewManager()}
	checks := map[string]httpapi.HealthChecker{}

	store, err := a.buildStore(ctx, checks)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure store: %w", err)
	}
	catalog := a.buildCatalog(ctx, checks)

	media, err := upload.NewFileStore(cfg.Upload.Dir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure uploads: %w", err)
	}

	var static http.Handler
	if cfg.Static.Dir != "" {
		spa, err := web.NewSPA(cfg.Static.Dir)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("configure frontend: %w", err)
		}
		static = spa
	}

	userSvc := users.New(store, store, log.WithService("users"))
	a.songs = songs.New(store, catalog, media, log.WithService("songs"))

	a.api = httpapi.NewServer(httpapi.Deps{
		Config:   cfg,
		Users:    userSvc,
		Songs:    a.songs,
		Sessions: session.NewManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Security),
		Receiver: upload.NewReceiver(cfg.Upload.FieldName, cfg.Upload.MaxBytes),
		MediaDir: media.Dir(),
		Static:   static,
		Checks:   checks,
		Log:      log,
	})

	scheduler := jobs.New(log.WithService("jobs"), 30*time.Second)
	for _, job := range []jobs.Job{
		jobs.SweepLimiter(a.api.Limiter(), throttleMaxIdle, log),
		jobs.WarmCatalog(a.songs),
	} {
		if err := scheduler.Add(job); err != nil {
			a.close()
			return nil, err
		}
	}
	if err := a.manager.Register(scheduler); err != nil {
		a.close()
		return nil, err
	}

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.api,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return a, nil
}

func (a *Application) buildStore(ctx context.Context, checks map[string]httpapi.HealthChecker) (storage.Store, error) {
	dbCfg := a.cfg.Database
	if dbCfg.DSN == "" {
		a.log.Warn("DATABASE_URL not set; using in-memory store")
		return memory.New(), nil
	}

	db, err := postgres.Open(ctx, dbCfg.DSN, dbCfg.MaxOpenConns, dbCfg.MaxIdleConns,
		time.Duration(dbCfg.ConnMaxLifetime)*time.Second)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if err := migrations.Up(ctx, db); err != nil {
		return nil, err
	}
	store := postgres.New(db)
	checks["database"] = store
	return store, nil
}

// buildCatalog falls back to a process-local cache when Redis is unreachable.
func (a *Application) buildCatalog(ctx context.Context, checks map[string]httpapi.HealthChecker) cache.Catalog {
	ttl := a.cfg.Redis.CatalogTTL
	if a.cfg.Redis.Addr == "" {
		return cache.NewMemory(ttl)
	}
	rc, err := cache.DialRedis(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB, ttl)
	if err != nil {
		a.log.WithError(err).Warn("redis unavailable; using in-process catalog cache")
		return cache.NewMemory(ttl)
	}
	a.closers = append(a.closers, rc.Close)
	checks["redis"] = rc
	return rc
}

// Handler exposes the assembled HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.api
}

// Ready is closed once the listener is bound.
func (a *Application) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the bound listener address, or nil before Ready.
func (a *Application) Addr() net.Addr {
	a.addrMu.Lock()
	defer a.addrMu.Unlock()
	return a.addr
}

// Run starts background jobs and the HTTP server, and blocks until ctx is
// cancelled or the server fails. It always shuts down before returning.
func (a *Application) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	if err := a.songs.Warm(ctx); err != nil {
		a.log.WithError(err).Warn("initial catalog warm failed")
	}

	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return errors.Join(fmt.Errorf("listen %s: %w", a.httpServer.Addr, err), a.Shutdown(context.Background()))
	}
	a.addrMu.Lock()
	a.addr = ln.Addr()
	a.addrMu.Unlock()
	close(a.ready)

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", ln.Addr().String()).
			WithField("environment", a.cfg.Environment).
			Info("HTTP server listening")
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	case err := <-errCh:
		return errors.Join(err, a.Shutdown(context.Background()))
	}
}

// Shutdown gracefully stops the HTTP server, then background jobs, then
// closes storage connections. Only the first call does anything.
func (a *Application) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		var errs []error
		if shutdownErr := a.httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", shutdownErr))
		}
		if stopErr := a.manager.Stop(shutdownCtx); stopErr != nil {
			errs = append(errs, stopErr)
		}
		a.close()
		a.log.Info("application stopped")
		err = errors.Join(errs...)
	})
	return err
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("error closing connection")
		}
	}
	a.closers = nil
}
