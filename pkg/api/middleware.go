package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
)

// setupMiddleware configures global middleware for the Fiber app
func setupMiddleware(app *fiber.App, cfg *Config) {
	// Recovery middleware catches panics
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Every request carries an ID, echoed in the X-Request-ID header
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	// Logger middleware for request logging
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency}) ${respHeader:X-Request-ID}\n",
	}))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// CORS middleware for cross-origin requests
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))
}
