package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mkrupp/micropost/internal/infra/config"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/infra/metrics"
	"github.com/mkrupp/micropost/internal/infra/tracing"
	http_ "github.com/mkrupp/micropost/internal/infra/transport/http"
	"github.com/mkrupp/micropost/internal/repo/post"
	"github.com/mkrupp/micropost/internal/repo/postgres"
	"github.com/mkrupp/micropost/internal/repo/sqlite"
	"github.com/mkrupp/micropost/internal/repo/user"
	"github.com/mkrupp/micropost/internal/svc/adminsvc"
	"github.com/mkrupp/micropost/internal/svc/authsvc"
	"github.com/mkrupp/micropost/internal/svc/postsvc"
)

const (
	appName = "micropost"
	svcName = "postsvc"

	flushTimeout = 5 * time.Second
)

// Storage drivers.
const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var (
	// ErrUnknownDriver is returned for a STORE_DRIVER other than sqlite or postgres.
	ErrUnknownDriver = errors.New("unknown store driver")
)

type StoreConfig struct {
	Driver   string          `env:"DRIVER" default:"sqlite"`
	SQLite   sqlite.Config   `envPrefix:"SQLITE_"`
	Postgres postgres.Config `envPrefix:"POSTGRES_"`
}

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig      `envPrefix:"LOG_"`
	Auth    authsvc.AuthConfig        `envPrefix:"AUTH_"`
	HTTP    http_.HTTPTransportConfig `envPrefix:"HTTP_"`
	Store   StoreConfig               `envPrefix:"STORE_"`
	Metrics metrics.Config            `envPrefix:"METRICS_"`
	Tracing tracing.Config            `envPrefix:"TRACING_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func repositoryFactories(cfg StoreConfig) (user.RepositoryFactory, post.RepositoryFactory, error) {
	switch cfg.Driver {
	case driverSQLite:
		return user.SQLiteUserRepositoryFactory(cfg.SQLite), post.SQLitePostRepositoryFactory(cfg.SQLite), nil
	case driverPostgres:
		return user.PostgresUserRepositoryFactory(cfg.Postgres), post.PostgresPostRepositoryFactory(cfg.Postgres), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

//nolint:funlen
func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.postsvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, strings.Join([]string{appName, svcName}, "."))
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()

		if err := shutdownTracing(flushCtx); err != nil {
			log.WarnContext(ctx, "flush traces", "err", err)
		}
	}()

	userRepos, postRepos, err := repositoryFactories(cfg.Store)
	if err != nil {
		return err
	}

	authSvc, err := authsvc.NewAuthService(ctx, userRepos, cfg.Auth)
	if err != nil {
		return fmt.Errorf("new auth service: %w", err)
	}
	defer authSvc.Close()

	if err := authSvc.EnsureAdmin(ctx); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	postSvc, err := postsvc.NewPostService(ctx, postRepos, userRepos)
	if err != nil {
		return fmt.Errorf("new post service: %w", err)
	}
	defer postSvc.Close()

	adminSvc, err := adminsvc.NewAdminService(ctx, userRepos, postSvc)
	if err != nil {
		return fmt.Errorf("new admin service: %w", err)
	}
	defer adminSvc.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	postsTransport := postsvc.NewHTTPTransport(postSvc, authSvc, postsvc.HTTPTransportConfig{HTTPTransportConfig: cfg.HTTP}, m)
	adminTransport := adminsvc.NewHTTPTransport(adminSvc, authSvc, adminsvc.HTTPTransportConfig{HTTPTransportConfig: cfg.HTTP}, m)
	authTransport := authsvc.NewHTTPTransport(authSvc, authsvc.HTTPTransportConfig{HTTPTransportConfig: cfg.HTTP}, m)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("micropost server is running\n"))
	})
	mux.Handle("/api/register", authTransport)
	mux.Handle("/api/login", authTransport)
	mux.Handle("/api/profile", authTransport)
	mux.Handle("/api/posts", postsTransport)
	mux.Handle("/api/posts/", postsTransport)
	mux.Handle("/api/admin/", adminTransport)
	mux.HandleFunc("/", http_.NotFound)

	if m != nil {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
	}

	if err := http_.ListenAndServe(ctx, mux, cfg.HTTP, m); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
