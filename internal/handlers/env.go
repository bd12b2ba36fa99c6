// Package handlers contains the HTTP route handler functions for the club API.
// Each handler corresponds to one API endpoint and is responsible for reading the
// request, performing any business logic, and writing a response.
//
// Every exported function follows the "handler factory" pattern: it takes the shared *Env
// and returns a fiber.Handler. This lets us inject the database, clock and notifier
// without using global variables, and lets tests swap any of them.
package handlers

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/stats"
	"github.com/trentd187/badminton-club/internal/status"
)

// Env carries the dependencies shared by all handlers.
type Env struct {
	DB       *gorm.DB
	Updater  *status.Updater
	Stats    *stats.Aggregator
	Notifier status.Notifier // May be nil; publishing is always best-effort
	Logger   *slog.Logger
	Location *time.Location // Club timezone for match dates and time ranges
	Clock    func() time.Time

	validate *validator.Validate
}

// NewEnv wires an Env with the real clock and the request validator.
func NewEnv(db *gorm.DB, updater *status.Updater, aggregator *stats.Aggregator, notifier status.Notifier, logger *slog.Logger, loc *time.Location) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Env{
		DB:       db,
		Updater:  updater,
		Stats:    aggregator,
		Notifier: notifier,
		Logger:   logger,
		Location: loc,
		Clock:    time.Now,
		validate: newValidator(),
	}
}

// now returns the current time in the club timezone. The status resolver reads
// the location from its now argument, so this is what every write path passes in.
func (e *Env) now() time.Time {
	return e.Clock().In(e.Location)
}

func (e *Env) notify(reason string, matchIDs ...uuid.UUID) {
	if e.Notifier != nil {
		e.Notifier.MatchesChanged(reason, matchIDs...)
	}
}
