package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	auth "github.com/leadnest/leadnest-auth"
	"github.com/leadnest/leadnest-auth/activitymap"
	"github.com/leadnest/leadnest-auth/config"
	"github.com/leadnest/leadnest-auth/middleware/csrf"
	"github.com/leadnest/leadnest-auth/persistence"
	"github.com/leadnest/leadnest-auth/ratelimit"
)

type App struct {
	config   *config.Config
	bunDB    *bun.DB
	redis    *redis.Client
	limiter  ratelimit.Limiter
	repo     auth.RepositoryManager
	tokens   *auth.TokenServiceImpl
	auth     *auth.Auther
	auther   *auth.RouteAuthenticator
	activity auth.ActivitySink
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := config.Load()
	if err != nil {
		lgr.GetLogger("config").Error("configuration error", "error", err)
		os.Exit(1)
	}

	if cfg.Environment != config.EnvTest {
		cfg.LogConfiguration(lgr.GetLogger("config"))
	}

	ctx := context.Background()
	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		app.GetLogger("persistence").Error("database setup failed", "error", err)
		os.Exit(1)
	}

	WithRateLimiter(ctx, app)

	if err := WithAuth(ctx, app); err != nil {
		app.GetLogger("auth").Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	WithHTTPServer(ctx, app)

	go func() {
		if err := app.srv.Serve(cfg.Addr()); err != nil {
			app.GetLogger("http").Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("app").Info("shutting down", "signal", sig.String())

	app.Shutdown(10 * time.Second)
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := persistence.Open(ctx, app.config.DatabaseURL,
		persistence.WithDebug(app.config.IsDevelopment()),
		persistence.WithMaxOpenConns(10),
		persistence.WithConnMaxLifetime(30*time.Minute),
	)
	if err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(db, auth.WithTrialPeriod(app.config.TrialPeriod()))
	if err := repo.Validate(); err != nil {
		return err
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = repo
	return nil
}

func WithRateLimiter(ctx context.Context, app *App) {
	logger := app.GetLogger("ratelimit")

	if !app.config.RateLimitEnabled {
		logger.Info("rate limiting disabled")
		app.limiter = ratelimit.NoopLimiter{}
		return
	}

	if app.config.RedisURL == "" {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
		app.limiter = ratelimit.NoopLimiter{}
		return
	}

	opts, err := redis.ParseURL(app.config.RedisURL)
	if err != nil {
		logger.Warn("invalid REDIS_URL, rate limiting disabled", "error", err)
		app.limiter = ratelimit.NoopLimiter{}
		return
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", "error", err, "fail_open", app.config.RateLimitFailOpen)
	}

	app.redis = client
	app.limiter = ratelimit.NewRedisLimiter(client)
}

func WithAuth(_ context.Context, app *App) error {
	tokens, err := auth.NewTokenService(
		[]byte(app.config.SecretKey),
		auth.WithTokenIssuer(app.config.TokenIssuer),
		auth.WithTokenLogger(app.GetLogger("auth:tokens")),
		auth.WithPreviousSigningKeys(app.config.PreviousKeys()...),
	)
	if err != nil {
		return err
	}

	activity := activitymap.LogSink(app.GetLogger("auth:activity"), activitymap.WithEmailRedaction(app.config.IsProduction()))

	provider := auth.NewUserProvider(app.repo.Users()).
		WithLogger(app.GetLogger("auth:prv"))

	authenticator := auth.NewAuthenticator(provider, tokens).
		WithLogger(app.GetLogger("auth:authz")).
		WithTokenTTL(app.config.AccessTokenTTL()).
		WithActivitySink(activity)

	app.tokens = tokens
	app.activity = activity
	app.auth = authenticator
	app.auther = auth.NewHTTPAuthenticator(authenticator, tokens).
		WithLogger(app.GetLogger("auth:http"))

	return nil
}

func WithHTTPServer(_ context.Context, app *App) {
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		a := fiber.New(fiber.Config{
			AppName:      app.config.ServiceName,
			ErrorHandler: errorHandler(app.GetLogger("http")),
		})
		a.Use(recover.New())
		a.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(app.config.CORSOrigins(), ","),
			AllowCredentials: true,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + csrf.DefaultHeaderName,
			ExposeHeaders:    csrf.DefaultHeaderName + ", X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After",
		}))
		return a
	})

	r := srv.Router().WithLogger(app.GetLogger("router"))

	// per client limits need the fiber request, mount them ahead of the routes
	auth.RateLimitAuthRoutes(srv.WrappedRouter(), app.config.RoutePrefix, ratelimit.Config{
		Limiter:  app.limiter,
		Policy:   ratelimit.PolicyAuth,
		FailOpen: app.config.RateLimitFailOpen,
		Logger:   app.GetLogger("ratelimit"),
	})

	auth.RegisterHealthRoutes(r, app.config.ServiceName)

	registrar := auth.NewRegisterUserHandler(app.repo).
		WithLogger(app.GetLogger("auth:register")).
		WithActivitySink(app.activity)

	auth.RegisterAuthRoutes(r.Group(app.config.RoutePrefix),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithAuthenticator(app.auth),
		auth.WithRegistrar(registrar),
		auth.WithProtected(app.auther.ProtectedRoute(), app.auther.LoadUser()),
		auth.WithCSRF(csrf.New(csrf.Config{
			SecureKey:    []byte(app.config.SecretKey),
			UserResolver: app.auther.CSRFUser,
		})),
	)

	app.srv = srv
}

func (a *App) Shutdown(timeout time.Duration) {
	logger := a.GetLogger("app")

	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Error("redis close", "error", err)
		}
	}

	if a.bunDB != nil {
		if err := a.bunDB.Close(); err != nil {
			logger.Error("database close", "error", err)
		}
	}
}

func errorHandler(logger glog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(auth.ErrorResponse{Detail: fe.Message})
		}

		logger.Error("unhandled request error", "path", c.Path(), "error", err)
		status, body := auth.ErrorResponseFor(err)
		if status == fiber.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}
		return c.Status(status).JSON(body)
	}
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
