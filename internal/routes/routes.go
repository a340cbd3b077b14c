package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zawadi-pay/zawadi_pay/internal/auth"
	"github.com/zawadi-pay/zawadi_pay/internal/chain"
	"github.com/zawadi-pay/zawadi_pay/internal/config"
	"github.com/zawadi-pay/zawadi_pay/internal/funding"
	"github.com/zawadi-pay/zawadi_pay/internal/identity"
	"github.com/zawadi-pay/zawadi_pay/internal/middleware"
	"github.com/zawadi-pay/zawadi_pay/internal/notification"
	"github.com/zawadi-pay/zawadi_pay/internal/rewards"
	"github.com/zawadi-pay/zawadi_pay/internal/transfer"
	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Storage backends
// are chosen here: Postgres/Redis when configured, in-memory in dev mode.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Storage backends.
	var (
		ledgerBackend chain.Ledger
		walletStore   wallet.Store
		rewardStore   rewards.Store
		identityRepo  identity.Repository
		err           error
	)
	if d.DB != nil {
		if ledgerBackend, err = chain.NewPostgresLedger(context.Background(), d.DB); err != nil {
			return fmt.Errorf("initialize ledger: %w", err)
		}
		walletStore = wallet.NewPostgresStore(d.DB)
		rewardStore = rewards.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = chain.NewInMemory()
		walletStore = wallet.NewMemoryStore()
		rewardStore = rewards.NewMemoryStore()
		identityRepo = identity.NewMemoryRepository()
	}

	// Services.
	walletSvc := wallet.NewService(walletStore)
	notifier := notification.NewLoggerNotifier(d.Logger)
	engine := rewards.NewEngine(rewardStore, walletStore, rewards.SystemClock(), rewards.SystemRand(),
		d.Cfg.RewardTimezone, notifier, d.Logger)
	coordinator := transfer.NewCoordinator(walletStore, ledgerBackend, engine, notifier, d.Logger)
	identitySvc := identity.NewService(identityRepo, walletSvc)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	fundingSvc, err := funding.NewService(ledgerBackend, walletSvc, nil, d.Logger)
	if err != nil {
		return err
	}

	// Handlers.
	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	transferHandler := transfer.NewHandler(coordinator)
	rewardsHandler := rewards.NewHandler(engine)
	fundingHandler := funding.NewHandler(fundingSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes.
	RegisterIdentityRoutes(api, identityHandler)
	loginLimiter := middleware.RateLimit(d.Cache, "login", 5, middleware.PhoneKey)
	RegisterAuthRoutes(api, authHandler, loginLimiter)

	// Protected routes.
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterPaymentRoutes(protected, transferHandler)
	RegisterFundingRoutes(protected, fundingHandler)
	drawLimiter := middleware.RateLimit(d.Cache, "rewards", 30, middleware.UserKey)
	RegisterRewardRoutes(protected, rewardsHandler, drawLimiter)
	RegisterLedgerRoutes(protected, ledgerBackend)

	return nil
}
