package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/badminton-club/internal/metrics"
)

// Metrics records the latency of every request against its route pattern.
// Requests that match no route are grouped under "unmatched" to keep label cardinality bounded.
func Metrics(recorder *metrics.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		// A handler error has not been written yet; the app's error handler maps it later.
		var fe *fiber.Error
		if err != nil {
			status = fiber.StatusInternalServerError
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		recorder.RecordHTTPRequest(c.Method(), route, status, time.Since(start))
		return err
	}
}
