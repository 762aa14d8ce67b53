package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/card"
	"github.com/card-ledger/card_ledger/internal/config"
	"github.com/card-ledger/card_ledger/internal/ledger"
	"github.com/card-ledger/card_ledger/internal/middleware"
	"github.com/card-ledger/card_ledger/internal/purchase"
	"github.com/card-ledger/card_ledger/internal/storage"
	"github.com/card-ledger/card_ledger/internal/transaction"
)

// Deps aggregates shared dependencies required to wire routes. Store
// overrides the backend chosen from DB.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Store  storage.Store
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	store := d.Store
	if store == nil {
		switch {
		case d.DB != nil:
			store = storage.NewPostgresStore(d.DB)
		case d.Cfg.IsDev():
			d.Logger.Warn("no database configured, using in-memory store")
			store = storage.NewMemoryStore()
		default:
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path} ${locals:X-Request-ID}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	balancer := ledger.NewBalancer(d.Cfg.LedgerSettings())
	cardSvc := card.NewService(store, balancer, d.Logger)
	factory := transaction.NewFactory(store, balancer, d.Logger)
	scheduler := purchase.NewScheduler(store, factory, balancer, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterCardRoutes(api, card.NewHandler(cardSvc), transaction.NewHandler(factory), purchase.NewHandler(scheduler))
	RegisterTransactionRoutes(api, transaction.NewHandler(factory))
	RegisterPurchaseRoutes(api, purchase.NewHandler(scheduler))

	return nil
}

type errorResponse struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Code    int    `json:"code"`
}

// ErrorHandler renders domain errors with their status and kind. Fiber
// errors keep their status; anything else is a server fault.
func ErrorHandler(c *fiber.Ctx, err error) error {
	resp := errorResponse{
		Message: err.Error(),
		Kind:    string(apperr.KindUnclassified),
		Code:    http.StatusInternalServerError,
	}

	var fe *fiber.Error
	if de, ok := apperr.As(err); ok {
		resp.Kind = string(de.Kind)
		resp.Code = de.Code
		resp.Message = de.Message
		if resp.Code == 0 {
			resp.Code = apperr.StatusFor(de.Kind)
		}
	} else if errors.As(err, &fe) {
		resp.Code = fe.Code
		resp.Kind = http.StatusText(fe.Code)
	}

	return c.Status(resp.Code).JSON(resp)
}
