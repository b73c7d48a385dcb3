// Package server assembles the ninja-auth HTTP service from its
// configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	ninjaauth "github.com/devsnb/ninja-authentication"
	"github.com/devsnb/ninja-authentication/internal/config"
	"github.com/devsnb/ninja-authentication/internal/telemetry"
	"github.com/devsnb/ninja-authentication/mail/smtp"
	"github.com/devsnb/ninja-authentication/oauth2"
	"github.com/devsnb/ninja-authentication/stores"
	"github.com/devsnb/ninja-authentication/stores/gae"
	gormstore "github.com/devsnb/ninja-authentication/stores/gorm"
	"github.com/devsnb/ninja-authentication/stores/postgres"
)

const serviceName = "ninja-auth"

// App is a fully wired service. Close releases the store and session
// backends.
type App struct {
	Auth    *ninjaauth.Auth
	Handler http.Handler
	Logger  *slog.Logger

	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires every component named by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Logger: logger}

	store, err := app.openStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	session := scs.New()
	session.Lifetime = cfg.SessionLifetime
	session.Cookie.Name = "ninja-auth"
	session.Cookie.HttpOnly = true
	session.Cookie.SameSite = http.SameSiteLaxMode
	session.Cookie.Secure = cfg.SecureCookies
	switch cfg.SessionStore {
	case config.SessionRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			app.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		app.closers = append(app.closers, client.Close)
		session.Store = goredisstore.New(client)
	default:
		ms := memstore.NewWithCleanupInterval(time.Minute)
		app.closers = append(app.closers, func() error { ms.StopCleanup(); return nil })
		session.Store = ms
	}

	hasher, err := ninjaauth.NewArgon2Hasher(ninjaauth.DefaultArgon2Params())
	if err != nil {
		app.Close()
		return nil, err
	}
	tokens := ninjaauth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)

	var transport ninjaauth.MailTransport = &ninjaauth.ConsoleTransport{Logger: logger}
	if cfg.SMTP.Enabled() {
		transport, err = smtp.New(smtp.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Secure:   cfg.SMTP.Secure,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
	} else {
		logger.Warn("SMTP_HOST is not set, mail is written to the log")
	}

	auth := ninjaauth.NewAuth(store, hasher, tokens, session, ninjaauth.NewMailer(transport), cfg.ApplicationHost)
	auth.Logger = logger
	auth.EnsureDefaults()

	if p := cfg.Google(); p.Enabled() {
		google := oauth2.NewGoogleOAuth2(p.ClientID, p.ClientSecret, p.CallbackURL, auth.CompleteFederatedLogin)
		google.Logger = logger
		auth.AddProvider("google", google)
	}
	if p := cfg.Github(); p.Enabled() {
		github := oauth2.NewGithubOAuth2(p.ClientID, p.ClientSecret, p.CallbackURL, auth.CompleteFederatedLogin)
		github.Logger = logger
		auth.AddProvider("github", github)
	}

	app.Auth = auth
	app.Handler = auth.Handler()
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (ninjaauth.UserStore, error) {
	switch cfg.StoreDriver {
	case config.StoreFS:
		return stores.NewFSUserStore(cfg.StorePath), nil

	case config.StoreSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		sqlDB.SetMaxOpenConns(1)
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		return gormstore.NewUserStore(db), nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.RunMigrations(ctx, db); err != nil {
			return nil, err
		}
		return postgres.NewUserStore(db), nil

	case config.StoreDatastore:
		var opts []option.ClientOption
		if cfg.DatastoreCreds != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.DatastoreCreds))
		}
		client, err := datastore.NewClientWithDatabase(ctx, cfg.DatastoreProject, cfg.DatastoreDatabase, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return gae.NewUserStore(client, ""), nil

	default:
		a.Logger.Warn("using the in-memory user store, users are lost on restart")
		return ninjaauth.NewMemoryUserStore(), nil
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	app, err := Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "store", cfg.StoreDriver, "sessions", cfg.SessionStore)
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

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(sctx)
	// recovery mails still in flight
	app.Auth.Recovery.Wait()
	return err
}

// NewLogger returns the process logger.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
