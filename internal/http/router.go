package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rmoralesc/accounthub/internal/auth"
	"github.com/rmoralesc/accounthub/internal/config"
	"github.com/rmoralesc/accounthub/internal/http/handlers"
	"github.com/rmoralesc/accounthub/internal/http/middlewares"
	"github.com/rmoralesc/accounthub/internal/mail"
	"github.com/rmoralesc/accounthub/internal/observability"
	"github.com/rmoralesc/accounthub/internal/redisclient"
	"github.com/rmoralesc/accounthub/internal/repo/postgres"
	"github.com/rmoralesc/accounthub/internal/security"
	"github.com/rmoralesc/accounthub/internal/service"
)

// NewAuthRouter wires the authentication service: signup, login, logout,
// the cookie-backed current-user lookup, and the password-reset flow.
func NewAuthRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	r, prom := baseRouter("accounthub-auth", pool, cfg)

	// auth endpoints are rate limited by client ip
	r.Use(middlewares.RateLimit(newLimiter(cfg), middlewares.KeyByIP))

	usersRepo := postgres.NewUsersRepo(pool, prom)

	mailer := mail.NewProtected(newMailer(cfg), mail.ProtectedConfig{
		Timeout: 5 * time.Second,
	}, prom)

	hasher := security.NewHasher(cfg.BcryptCost)
	authSvc := service.NewAuth(usersRepo, mailer, hasher, cfg.FrontendURL, log)

	sessions := auth.NewManager(cfg.SessionSecret, auth.SessionTTL)
	sessionMW := middlewares.NewSessionMiddleware(sessions)

	authHandler := handlers.NewAuthHandler(authSvc, sessions, cfg.Env == "prod")

	r.POST("/signup", authHandler.SignUp)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authHandler.Logout)
	r.POST("/forgot-password", authHandler.ForgotPassword)
	r.POST("/validate-token", authHandler.ValidateToken)
	r.POST("/reset-password", authHandler.ResetPassword)
	r.GET("/user", sessionMW.RequireSession(), authHandler.CurrentUser)

	return r
}

// NewCRUDRouter wires the user-management service.
func NewCRUDRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	r, prom := baseRouter("accounthub-crud", pool, cfg)

	usersRepo := postgres.NewUsersRepo(pool, prom)
	usersHandler := handlers.NewUsersHandler(usersRepo)

	r.GET("/users", usersHandler.ListUsers)
	r.POST("/users", usersHandler.CreateUser)
	r.GET("/users/:id", usersHandler.GetUserById)
	r.PUT("/users/:id", usersHandler.UpdateUser)
	r.DELETE("/users/:id", usersHandler.DeleteUser)

	return r
}

func baseRouter(serviceName string, pool *pgxpool.Pool, cfg config.Config) (*gin.Engine, *observability.Prom) {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(reg)

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(prom.GinHandleMiddleware())

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r, prom
}

func newLimiter(cfg config.Config) middlewares.Limiter {
	if cfg.RedisAddr != "" {
		client := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})

		return middlewares.NewRedisLimiter(client.Raw(), cfg.RateLimit, cfg.RateLimitWindow)
	}

	return middlewares.NewMemoryLimiter(cfg.RateLimit, cfg.RateLimitWindow)
}

func newMailer(cfg config.Config) mail.Mailer {
	if cfg.SMTPHost == "" {
		return mail.NewLogMailer()
	}

	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.EmailFrom,
	})
}
