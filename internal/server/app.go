// Package server assembles the Fiber application and its routes.
package server

import (
	"strings"
	"time"

	"comexiger-backend/internal/audit"
	"comexiger-backend/internal/auth"
	"comexiger-backend/internal/catalog"
	"comexiger-backend/internal/config"
	"comexiger-backend/internal/httpx"
	"comexiger-backend/internal/metrics"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/shift"
	"comexiger-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Log     zerolog.Logger
	Issuer  *auth.TokenIssuer
	Stock   *stock.Ledger
	Shifts  *shift.Ledger
	Catalog *catalog.Catalog
}

func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "comexiger-backend",
		ErrorHandler:          httpx.ErrorHandler(d.Log),
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: d.Config.IsDev()}))
	app.Use(accessLog(d.Log))
	if d.Config.MetricsEnabled {
		app.Use(metrics.Middleware())
	}

	corsOrigins := strings.Split(d.Config.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", healthHandler(d.DB))
	if d.Config.MetricsEnabled {
		app.Get("/metrics", metrics.Handler())
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/login", auth.LoginHandler(d.DB, d.Issuer))
	api.Post("/auth/refresh", auth.RefreshHandler(d.DB, d.Issuer))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.Issuer))

	protected.Get("/auth/me", auth.MeHandler(d.DB))

	// Disponibilidad: fixed paths before /:id
	protected.Get("/disponibilidad", stock.ListHandler(d.Stock))
	protected.Post("/disponibilidad", stock.InboundHandler(d.Stock))
	protected.Post("/disponibilidad/salida", stock.OutboundHandler(d.Stock))
	protected.Get("/disponibilidad/activos", stock.ActiveHandler(d.Stock))
	protected.Get("/disponibilidad/por-mesa", stock.ByTableHandler(d.Stock))
	protected.Get("/disponibilidad/stats", stock.StatsHandler(d.Stock))
	protected.Get("/disponibilidad/export", stock.ExportHandler(d.Stock))
	protected.Get("/disponibilidad/:id", stock.GetHandler(d.Stock))

	// Catálogo
	protected.Get("/variedades", catalog.ListVarietiesHandler(d.Catalog))
	protected.Post("/variedades", catalog.CreateVarietyHandler(d.Catalog))
	protected.Post("/variedades/excel", catalog.ImportVarietiesHandler(d.Catalog))
	protected.Delete("/variedades/:id", catalog.DeleteVarietyHandler(d.Catalog))
	protected.Get("/mesas", catalog.ListMesasHandler(d.Catalog))

	// Jornada
	protected.Post("/jornada/iniciar", shift.StartHandler(d.Shifts))
	protected.Post("/jornada/finalizar", shift.EndHandler(d.Shifts))
	protected.Get("/jornada/actual", shift.CurrentHandler(d.Shifts))
	protected.Get("/jornada/historial", shift.HistoryHandler(d.Shifts))

	// Rendimiento
	protected.Get("/rendimiento", shift.ListHandler(d.Shifts))
	protected.Post("/rendimiento", shift.ProductionHandler(d.Shifts))
	protected.Get("/rendimiento/activos", shift.ActiveHandler(d.Shifts))
	protected.Get("/rendimiento/por-mesa", shift.ByTableHandler(d.Shifts))
	protected.Get("/rendimiento/stats", shift.StatsHandler(d.Shifts))
	protected.Get("/rendimiento/:id", shift.GetHandler(d.Shifts))

	// Admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/disponibilidad", stock.CreateLotHandler(d.Stock))
	adminRoutes.Put("/disponibilidad/:id", stock.SetQuantityHandler(d.Stock))
	adminRoutes.Delete("/disponibilidad/:id", stock.DeleteHandler(d.Stock))

	adminRoutes.Put("/rendimiento/:id", shift.UpdateHandler(d.Shifts))
	adminRoutes.Delete("/rendimiento/:id", shift.DeleteHandler(d.Shifts))

	adminRoutes.Get("/usuarios", auth.ListUsersHandler(d.DB))
	adminRoutes.Post("/usuarios", auth.CreateUserHandler(d.DB))

	adminRoutes.Post("/mesas", catalog.CreateMesaHandler(d.Catalog))
	adminRoutes.Delete("/mesas/:id", catalog.DeleteMesaHandler(d.Catalog))

	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler(d.DB))

	return app
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// accessLog writes one line per request.
func accessLog(l zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = httpx.StatusOf(err)
		}
		ev := l.Info()
		if status >= fiber.StatusInternalServerError {
			ev = l.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}
