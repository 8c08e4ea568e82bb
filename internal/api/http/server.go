package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ServerConfig holds the Fiber settings the API depends on.
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ProxyHeader names the header carrying the client address, e.g.
	// X-Forwarded-For. It is honoured only for requests arriving from
	// TrustedProxies; with no trusted proxies it is ignored.
	ProxyHeader    string
	TrustedProxies []string
}

// NewApp creates the Fiber app with JSON error rendering and proxy-aware
// client addresses. Routes are registered separately.
func NewApp(cfg ServerConfig) *fiber.App {
	fc := fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler,
	}
	if cfg.ProxyHeader != "" && len(cfg.TrustedProxies) > 0 {
		fc.ProxyHeader = cfg.ProxyHeader
		fc.EnableTrustedProxyCheck = true
		fc.TrustedProxies = cfg.TrustedProxies
		// Picks the first valid address out of a forwarded list.
		fc.EnableIPValidation = true
	}
	return fiber.New(fc)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
