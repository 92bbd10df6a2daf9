// Package server initializes and runs the application server: it opens
// the database, applies migrations, wires the authentication and user
// services and starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avolkov/tiergate/internal/logging"
	"github.com/avolkov/tiergate/internal/server/auth"
	"github.com/avolkov/tiergate/internal/server/config"
	"github.com/avolkov/tiergate/internal/server/httpapi"
	"github.com/avolkov/tiergate/internal/server/mail"
	"github.com/avolkov/tiergate/internal/server/repositories/repomanager"
	"github.com/avolkov/tiergate/internal/server/services"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	authenticator *auth.Authenticator
	authService   *services.AuthService
	userService   *services.UserService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	secret := []byte(c.SecretKey)
	issuer := auth.NewIssuer(secret,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, c.ResetTokenValidityDuration)

	// the users repository doubles as the revocation store; an optional
	// cache in front of it bounds how long a revocation can lag
	var versions auth.VersionStore = repos.Users(db)
	var invalidator services.VersionInvalidator
	if c.VersionCacheTTL > 0 {
		cached := auth.NewCachedVersionStore(versions, c.VersionCacheTTL)
		versions = cached
		invalidator = cached
	}

	mailer := mail.NewLogMailer(logger)
	as := services.NewAuthService(db, repos, issuer, secret, mailer, invalidator)
	us := services.NewUserService(db, repos, invalidator)

	return &App{
		config:        c,
		logger:        logger,
		db:            db,
		authenticator: auth.NewAuthenticator(secret, versions),
		authService:   as,
		userService:   us,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger,
		app.authenticator, app.authService, app.userService)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
}
