package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-sectores/pkg/logger"
)

// HTTPObserver recibe una observación por petición (lo implementa metrics.Metrics).
type HTTPObserver interface {
	ObserveHTTP(method, path string, status int, elapsed time.Duration)
}

// RequestLogger registra cada petición en el canal "http" y, si hay observer, la mide.
// El path registrado es el de la ruta (":id"), no la URL concreta.
func RequestLogger(log *logger.Logger, observer HTTPObserver) fiber.Handler {
	log = log.Channel("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// deja que el ErrorHandler fije el estado antes de medir
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		path := c.Route().Path

		if observer != nil {
			observer.ObserveHTTP(c.Method(), path, status, elapsed)
		}
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("company_id", GetCompanyID(c)).
			Msg("request")
		return nil
	}
}
