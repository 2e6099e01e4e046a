package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"photovault/pkg/errs"
	"photovault/pkg/logger"
	"photovault/pkg/utils"
)

// ErrorHandler maps application errors to JSON responses. Registered
// as the fiber app's error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return utils.ErrorResponse(c, fiberErr.Code, errs.ErrInternal, fiberErr.Message)
	}

	code := errs.CodeOf(err)
	status := utils.StatusForCode(code)
	if status >= fiber.StatusInternalServerError {
		logger.Error(logger.CategoryAPI, "request_failed", c.Method()+" "+c.Path(), err, nil)
	}
	return utils.ErrorResponse(c, status, code, err.Error())
}

// RequestLogger logs each request with latency.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.API("request", c.Method()+" "+c.Path(), map[string]interface{}{
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
		})
		return err
	}
}

// CORS allows cross-origin reads of the API.
func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	})
}
