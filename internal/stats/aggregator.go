// Package stats computes dashboard statistics from stored matches.
//
// It reads statuses as stored and does not resolve them itself; dashboards call the
// auto-update endpoint before fetching stats, and the scheduler keeps statuses fresh otherwise.
package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/models"
	"github.com/trentd187/badminton-club/internal/schedule"
)

// MonthKeyLayout formats the monthly breakdown keys. "YYYY-MM" sorts correctly as a string.
const MonthKeyLayout = "2006-01"

// Summary is the body of GET /stats.
type Summary struct {
	TotalMatches     int64  `json:"totalMatches"`
	UpcomingMatches  int64  `json:"upcomingMatches"`
	CompletedMatches int64  `json:"completedMatches"`
	HoursPlayed      string `json:"hoursPlayed"` // One decimal place, e.g. "12.5"
}

// MonthlyBucket accumulates completed matches for one calendar month.
type MonthlyBucket struct {
	Count      int     `json:"count"`
	TotalHours float64 `json:"totalHours"`
}

// HoursPlayed sums the durations of the given matches in hours.
// Matches with an unparsable time range count as zero.
func HoursPlayed(matches []models.Match) float64 {
	var total float64
	for _, m := range matches {
		if tr, ok := schedule.ParseTimeRange(m.TimeRange); ok {
			total += tr.DurationHours()
		}
	}
	return total
}

// FormatHours renders an hour total the way the dashboard shows it.
func FormatHours(h float64) string {
	return fmt.Sprintf("%.1f", h)
}

// MonthlyBreakdown groups matches by the month of their date. Every match is counted, and
// contributes its duration to TotalHours when the time range parses.
func MonthlyBreakdown(matches []models.Match) map[string]MonthlyBucket {
	out := make(map[string]MonthlyBucket)
	for _, m := range matches {
		key := MonthKey(m.Day())
		b := out[key]
		b.Count++
		if tr, ok := schedule.ParseTimeRange(m.TimeRange); ok {
			b.TotalHours += tr.DurationHours()
		}
		out[key] = b
	}
	return out
}

// MonthKey returns the "YYYY-MM" key for a date.
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyLayout)
}

// Aggregator runs the stats queries against the database.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Summary returns match counts by status and the hours played across completed matches.
// The four queries are independent and run concurrently.
func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	var (
		s         Summary
		completed []models.Match
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.db.WithContext(ctx).Model(&models.Match{}).Count(&s.TotalMatches).Error
	})
	g.Go(func() error {
		return a.db.WithContext(ctx).Model(&models.Match{}).
			Where("status = ?", models.MatchStatusUpcoming).
			Count(&s.UpcomingMatches).Error
	})
	g.Go(func() error {
		return a.db.WithContext(ctx).Model(&models.Match{}).
			Where("status = ?", models.MatchStatusCompleted).
			Count(&s.CompletedMatches).Error
	})
	g.Go(func() error {
		var err error
		completed, err = a.completedMatches(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("stats summary: %w", err)
	}

	s.HoursPlayed = FormatHours(HoursPlayed(completed))
	return s, nil
}

// Monthly returns the per-month breakdown of completed matches.
func (a *Aggregator) Monthly(ctx context.Context) (map[string]MonthlyBucket, error) {
	completed, err := a.completedMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats monthly: %w", err)
	}
	return MonthlyBreakdown(completed), nil
}

func (a *Aggregator) completedMatches(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	err := a.db.WithContext(ctx).
		Select("id", "date", "time_range").
		Where("status = ?", models.MatchStatusCompleted).
		Find(&matches).Error
	return matches, err
}
