// Package server assembles the Fiber application: middleware, error mapping and routes.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"restoran-pos/internal/admin"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/domain"
	"restoran-pos/internal/inventory"
	"restoran-pos/internal/logging"
	"restoran-pos/internal/metrics"
	"restoran-pos/internal/models"
	"restoran-pos/internal/orders"
	"restoran-pos/internal/report"
	"restoran-pos/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Store     store.Store
	Log       *zap.Logger
	Auth      *auth.Service
	Inventory *inventory.Service
	Orders    *orders.Service
	Reports   *report.Service

	JWTSecret   string
	Cookie      auth.CookieSettings
	CORSOrigins []string
	ReportTZ    *time.Location
}

// statusFor maps domain errors to HTTP status codes. ok is false for unclassified errors.
func statusFor(err error) (int, bool) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, true
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrStockItemNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidStatus):
		return fiber.StatusBadRequest, true
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, true
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrTransactionAborted),
		errors.Is(err, store.ErrDuplicate):
		return fiber.StatusConflict, true
	}
	return fiber.StatusInternalServerError, false
}

func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, known := statusFor(err)
		if !known {
			log.Error("unexpected error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			return c.Status(code).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(code).JSON(fiber.Map{"error": fe.Message})
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

func New(d Deps) *fiber.App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "restoran-pos",
		ErrorHandler: ErrorHandler(d.Log),
	})

	app.Use(metrics.Middleware())
	app.Use(logging.RequestLogger(d.Log))
	app.Use(recover.New())

	if len(d.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(d.CORSOrigins, ","),
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowCredentials: true,
		}))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			d.Log.Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/bootstrap-admin", auth.BootstrapAdminHandler(d.Auth))
	api.Post("/auth/login", auth.LoginHandler(d.Auth, d.Cookie))
	api.Post("/auth/refresh-token", auth.RefreshTokenHandler(d.Auth, d.Cookie))
	api.Post("/auth/logout", auth.LogoutHandler(d.Auth, d.Cookie))

	// Protected
	protected := api.Group("", auth.JWTMiddleware(d.JWTSecret))

	var (
		adminOnly     = auth.RequireRole(models.RoleAdmin)
		managers      = auth.RequireRole(models.RoleAdmin, models.RoleManager)
		orderTakers   = auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleWaiter)
		everyoneStaff = auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleWaiter, models.RoleChef)
	)

	protected.Get("/auth/me", auth.MeHandler(d.Auth))
	protected.Post("/auth/register", managers, auth.RegisterHandler(d.Auth))

	// Şube yönetimi
	protected.Get("/locations", adminOnly, admin.ListLocationsHandler(d.Store))
	protected.Post("/locations", adminOnly, admin.CreateLocationHandler(d.Store))
	protected.Get("/locations/:id", adminOnly, admin.GetLocationHandler(d.Store))
	protected.Put("/locations/:id", adminOnly, admin.UpdateLocationHandler(d.Store))
	protected.Delete("/locations/:id", adminOnly, admin.DeleteLocationHandler(d.Store))

	protected.Get("/users", managers, admin.ListUsersHandler(d.Store))

	// Ürünler
	protected.Get("/products", inventory.ListProductsHandler(d.Inventory))
	protected.Get("/products/:id", inventory.GetProductHandler(d.Inventory))
	protected.Post("/products", managers, inventory.CreateProductHandler(d.Inventory))
	protected.Put("/products/:id", managers, inventory.UpdateProductHandler(d.Inventory))
	protected.Delete("/products/:id", adminOnly, inventory.DeleteProductHandler(d.Inventory))

	// Stok
	protected.Get("/stock", inventory.ListStockItemsHandler(d.Inventory))
	protected.Get("/stock/:id", inventory.GetStockItemHandler(d.Inventory))
	protected.Post("/stock", managers, inventory.CreateStockItemHandler(d.Inventory))
	protected.Put("/stock/:id", managers, inventory.UpdateStockItemHandler(d.Inventory))
	protected.Delete("/stock/:id", adminOnly, inventory.DeleteStockItemHandler(d.Inventory))

	protected.Get("/adjustments", managers, inventory.ListAdjustmentsHandler(d.Inventory))
	protected.Post("/adjustments", managers, inventory.CreateAdjustmentHandler(d.Inventory))

	// Siparişler
	protected.Post("/orders", orderTakers, orders.CreateOrderHandler(d.Orders))
	protected.Get("/orders", everyoneStaff, orders.ListOrdersHandler(d.Orders))
	protected.Get("/orders/:id", everyoneStaff, orders.GetOrderHandler(d.Orders))
	protected.Get("/orders/:id/adjustments", managers, orders.OrderAdjustmentsHandler(d.Orders))
	protected.Patch("/orders/:id/status", everyoneStaff, orders.UpdateOrderStatusHandler(d.Orders))

	// Raporlar ve audit
	protected.Get("/reports/sales", managers, report.SalesReportHandler(d.Reports, d.ReportTZ))
	protected.Get("/audit-logs", managers, audit.ListAuditLogsHandler(d.Store))
	protected.Post("/audit-logs/:id/undo", managers, audit.UndoAuditLogHandler(d.Store))

	return app
}
