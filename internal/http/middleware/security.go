package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"dms/internal/config"
)

// Noop is a minimal middleware that simply calls the next handler.
// Disabled toggles resolve to it so the middleware chain keeps a fixed shape.
func Noop() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}

// CORS returns the CORS middleware when enabled in cfg, otherwise Noop.
func CORS(cfg config.HTTPConfig) fiber.Handler {
	if !cfg.CORSEnabled {
		return Noop()
	}
	origins := strings.TrimSpace(cfg.CORSAllowOrigins)
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + RequestIDHeader,
		ExposeHeaders: RequestIDHeader,
	})
}

// SecurityHeaders returns the helmet middleware when enabled in cfg, otherwise Noop.
// The swagger UI needs inline scripts, so its routes are skipped.
func SecurityHeaders(cfg config.HTTPConfig) fiber.Handler {
	if !cfg.SecurityHeaders {
		return Noop()
	}
	return helmet.New(helmet.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/swagger")
		},
	})
}
