package api

import (
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "user-api/docs"
	"user-api/internal/config"
	"user-api/internal/service"
)

func NewApp(cfg *config.Config, userService service.UserService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.ServiceName,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(PrometheusMiddleware())
	app.Use(RateLimitMiddleware(cfg.RateLimit))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	SetupRoutes(app, NewUserHandler(userService))

	return app
}

func SetupRoutes(app *fiber.App, userHandler *UserHandler) {
	app.Get("/health", HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/api-docs/*", swagger.HandlerDefault)

	users := app.Group("/api/users")
	users.Get("/", userHandler.ListUsers)
	users.Post("/", userHandler.CreateUser)
	users.Get("/:id", userHandler.GetUser)
	users.Put("/:id", userHandler.UpdateUser)
	users.Delete("/:id", userHandler.DeleteUser)
}
