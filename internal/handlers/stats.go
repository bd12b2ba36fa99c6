package handlers

import "github.com/gofiber/fiber/v2"

// GetStats returns a handler for GET /api/v1/stats:
// {totalMatches, upcomingMatches, completedMatches, hoursPlayed}.
func GetStats(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := env.Stats.Summary(c.UserContext())
		if err != nil {
			return env.internalError(c, err, "failed to compute stats")
		}
		return c.JSON(summary)
	}
}

// GetMonthlyStats returns a handler for GET /api/v1/stats/monthly, a map of
// "YYYY-MM" to {count, totalHours} over completed matches.
func GetMonthlyStats(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		monthly, err := env.Stats.Monthly(c.UserContext())
		if err != nil {
			return env.internalError(c, err, "failed to compute monthly stats")
		}
		return c.JSON(monthly)
	}
}
