package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/badminton-club/internal/middleware"
)

// Register mounts every /api/v1 route on api, which must already run middleware.Auth.
// Reads are open to all authenticated users; writes need the admin role. The one
// exception is auto-update, which every dashboard calls on load.
func Register(api fiber.Router, env *Env) {
	admin := middleware.RequireRole(middleware.RoleAdmin)

	api.Get("/stats", GetStats(env))
	api.Get("/stats/monthly", GetMonthlyStats(env))

	// Registered before /matches/:id so "auto-update" is never read as an id.
	api.Post("/matches/auto-update", AutoUpdateMatches(env))

	api.Get("/matches", ListMatches(env))
	api.Post("/matches", admin, CreateMatch(env))
	api.Get("/matches/:id", GetMatch(env))
	api.Put("/matches/:id", admin, UpdateMatch(env))
	api.Delete("/matches/:id", admin, DeleteMatch(env))

	api.Get("/matches/:id/players/past", PastPlayers(env))
	api.Get("/matches/:id/players", ListMatchPlayers(env))
	api.Post("/matches/:id/players", admin, AddMatchPlayer(env))
	api.Put("/matches/:id/players/:playerId", admin, UpdateMatchPlayer(env))
	api.Delete("/matches/:id/players/:playerId", admin, RemoveMatchPlayer(env))

	api.Get("/players", ListPlayers(env))
	api.Post("/players", admin, CreatePlayer(env))
	api.Get("/players/:id", GetPlayer(env))
	api.Put("/players/:id", admin, UpdatePlayer(env))
	api.Delete("/players/:id", admin, DeletePlayer(env))

	api.Get("/payments", ListPayments(env))
	api.Post("/payments", admin, CreatePayment(env))
	api.Get("/payments/:id", GetPayment(env))
	api.Put("/payments/:id", admin, UpdatePayment(env))
	api.Delete("/payments/:id", admin, DeletePayment(env))
}
