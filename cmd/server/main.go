package main

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/goliatone/go-storefront-accounts"
	"github.com/goliatone/go-storefront-accounts/cmd/server/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"
)

//go:embed views
var viewsFS embed.FS

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	repo   accounts.RepositoryManager
	tokens accounts.ActionTokens
	mailer accounts.Mailer
	auth   accounts.Authenticator
	auther accounts.HTTPAuthenticator
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("storefront"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	WithMailer(app)

	if err := WithHTTPServer(app); err != nil {
		panic(err)
	}

	if err := WithAccounts(app); err != nil {
		panic(err)
	}

	ProtectedRoutes(app)

	go func() {
		if err := app.srv.Serve(app.Config().GetServer().Address); err != nil {
			app.GetLogger("server").Error("server stopped", "error", err)
		}
	}()

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	sqlFS, err := fs.Sub(accounts.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(sqlFS); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if !group.IsZero() {
		app.GetLogger("persistence").Info("migrated database", "group", group.String())
	}

	app.bunDB = db
	app.repo = accounts.NewRepositoryManager(db)

	return app.repo.Validate()
}

func WithMailer(app *App) {
	smtp := app.Config().GetSMTP()
	lgr := appLogger{app.GetLogger("mailer")}

	if smtp.Host == "" {
		app.mailer = accounts.NewConsoleMailer(lgr)
		return
	}

	mailer, err := accounts.NewSMTPMailer(accounts.SMTPConfig{
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: smtp.Password,
		From:     smtp.From,
	}, lgr)
	if err != nil {
		app.GetLogger("mailer").Warn("falling back to console mailer", "error", err)
		app.mailer = accounts.NewConsoleMailer(lgr)
		return
	}

	app.mailer = mailer
}

func WithHTTPServer(app *App) error {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewPathForwardingFileSystem(http.FS(views), "/", ".html")
	engine.AddFuncMap(accounts.TemplateHelpers())

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("home", accounts.MergeTemplateData(ctx, router.ViewContext{
			"site_name": app.Config().GetServer().SiteName,
		}))
	})

	app.srv = srv

	return nil
}

// trackerAdapter narrows the accounts repository to the lookup and
// login-tracking calls the identity provider needs.
type trackerAdapter struct {
	accounts accounts.Accounts
}

func (a trackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*accounts.Account, error) {
	return a.accounts.GetByIdentifier(ctx, identifier)
}

func (a trackerAdapter) TrackAttemptedLogin(ctx context.Context, account *accounts.Account) error {
	return a.accounts.TrackAttemptedLogin(ctx, account)
}

func (a trackerAdapter) TrackSuccessfulLogin(ctx context.Context, account *accounts.Account) error {
	return a.accounts.TrackSuccessfulLogin(ctx, account)
}

func WithAccounts(app *App) error {
	cfg := app.Config().GetAuth()
	srvCfg := app.Config().GetServer()

	provider := accounts.NewAccountProvider(trackerAdapter{accounts: app.repo.Accounts()})
	provider.WithLogger(appLogger{app.GetLogger("accounts:prv")})

	authenticator := accounts.NewAuthenticator(provider, cfg)
	authenticator.WithLogger(appLogger{app.GetLogger("accounts:authn")})

	app.auth = authenticator

	httpAuth, err := accounts.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}
	httpAuth.Logger = appLogger{app.GetLogger("accounts:http")}

	app.auther = httpAuth

	app.tokens = accounts.NewActionTokenService(
		[]byte(cfg.GetSigningKey()),
		accounts.DefaultActionTokenTTL,
		cfg.GetIssuer(),
		appLogger{app.GetLogger("accounts:tokens")},
	)

	accounts.RegisterAccountRoutes(app.srv.Router().Group("/"),
		func(ac *accounts.AccountsController) *accounts.AccountsController {
			ac.Auther = httpAuth
			ac.Repo = app.repo
			ac.Tokens = app.tokens
			ac.Mailer = app.mailer
			ac.BaseURL = srvCfg.BaseURL
			ac.SiteName = srvCfg.SiteName
			ac.WithLogger(appLogger{app.GetLogger("accounts:ctrl")})
			return ac
		})

	return nil
}

func ProtectedRoutes(app *App) {
	p := app.srv.Router()
	cfg := app.Config().GetAuth()

	protected := app.auther.ProtectedRoute(cfg, app.auther.MakeClientRouteAuthErrorHandler(false))

	p.Get("/dashboard", DashboardShow(app), protected)
}

func DashboardShow(app *App) router.HandlerFunc {
	return func(ctx router.Context) error {
		session, err := accounts.GetRouterSession(ctx, app.Config().GetAuth().GetContextKey())
		if err != nil {
			claims, ok := accounts.GetRouterClaims(ctx, app.Config().GetAuth().GetContextKey())
			if !ok {
				return ctx.Redirect("/login", router.StatusSeeOther)
			}
			return renderDashboard(app, ctx, claims.AccountID())
		}

		return renderDashboard(app, ctx, session.GetAccountID())
	}
}

func renderDashboard(app *App, ctx router.Context, accountID string) error {
	identity, err := app.auth.IdentityFromSession(ctx.Context(), &accounts.SessionObject{AccountID: accountID})
	if err != nil {
		app.GetLogger("dashboard").Error("failed to load identity", "error", err)
		return ctx.Redirect("/login", router.StatusSeeOther)
	}

	return ctx.Render("dashboard", accounts.MergeTemplateData(ctx, router.ViewContext{
		"site_name": app.Config().GetServer().SiteName,
		"identity": map[string]string{
			"id":       identity.ID(),
			"username": identity.Username(),
			"email":    identity.Email(),
			"role":     identity.Role(),
		},
	}))
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

// appLogger adapts a glog logger to the accounts Logger interface.
type appLogger struct {
	lgr glog.Logger
}

func (l appLogger) Debug(format string, args ...any) { l.lgr.Debug(format, args...) }
func (l appLogger) Info(format string, args ...any)  { l.lgr.Info(format, args...) }
func (l appLogger) Warn(format string, args ...any)  { l.lgr.Warn(format, args...) }
func (l appLogger) Error(format string, args ...any) { l.lgr.Error(format, args...) }
