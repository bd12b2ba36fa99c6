// Package status keeps stored match statuses in line with the clock.
//
// A match's status is set correctly whenever it is written (handlers call
// schedule.ResolveStatus on every create and update), but a match also finishes passively
// when its end time goes by. The Updater sweeps UPCOMING matches and completes the ones
// that have ended; the Scheduler runs it on an interval, and dashboards trigger it on load.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/metrics"
	"github.com/trentd187/badminton-club/internal/models"
	"github.com/trentd187/badminton-club/internal/schedule"
)

// Notifier is told when matches change so connected dashboards can refetch.
// Implementations must not block.
type Notifier interface {
	MatchesChanged(reason string, matchIDs ...uuid.UUID)
}

// Trigger labels who asked for a run; it only shows up in logs and metrics.
type Trigger string

const (
	TriggerInterval Trigger = "interval"
	TriggerClient   Trigger = "client"
)

// Updater is the batch status updater.
type Updater struct {
	db       *gorm.DB
	loc      *time.Location
	logger   *slog.Logger
	metrics  *metrics.Recorder
	notifier Notifier
}

// NewUpdater builds an Updater. loc is the club timezone used to read match dates and
// time ranges. logger, recorder and notifier may be nil.
func NewUpdater(db *gorm.DB, loc *time.Location, logger *slog.Logger, recorder *metrics.Recorder, notifier Notifier) *Updater {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{db: db, loc: loc, logger: logger, metrics: recorder, notifier: notifier}
}

// Location returns the timezone the updater reads match times in.
func (u *Updater) Location() *time.Location {
	return u.loc
}

// Run completes every UPCOMING match whose end instant is before now and returns how many
// matches this call transitioned.
//
// The transition is one UPDATE inside a transaction, guarded by status = 'UPCOMING'. Two
// overlapping runs may select the same candidates, but only one of them changes each row;
// the other sees zero rows affected for it. Running again with nothing new returns 0.
//
// Matches with an unparsable time range are logged and skipped. If the update itself
// fails nothing is transitioned and the error is returned.
func (u *Updater) Run(ctx context.Context, now time.Time, trigger Trigger) (int, error) {
	now = now.In(u.loc)
	ids, skipped, err := u.dueMatches(ctx, now)
	if err != nil {
		u.metrics.RecordReconcile(string(trigger), 0, skipped, err)
		return 0, err
	}

	if len(ids) == 0 {
		u.metrics.RecordReconcile(string(trigger), 0, skipped, nil)
		return 0, nil
	}

	var transitioned int64
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Match{}).
			Where("id IN ? AND status = ?", ids, models.MatchStatusUpcoming).
			Updates(map[string]any{
				"status":     models.MatchStatusCompleted,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		transitioned = res.RowsAffected
		return nil
	})
	if err != nil {
		err = fmt.Errorf("complete matches: %w", err)
		u.metrics.RecordReconcile(string(trigger), 0, skipped, err)
		return 0, err
	}

	u.metrics.RecordReconcile(string(trigger), int(transitioned), skipped, nil)
	if transitioned > 0 {
		u.logger.Info("matches completed",
			slog.Int64("count", transitioned),
			slog.String("trigger", string(trigger)),
		)
		if u.notifier != nil {
			// An overlapping run completed some of ids first, and which ones is not known
			// here. Clients refetch on any event, so send it without ids.
			if int(transitioned) == len(ids) {
				u.notifier.MatchesChanged("auto-update", ids...)
			} else {
				u.notifier.MatchesChanged("auto-update")
			}
		}
	}
	return int(transitioned), nil
}

// dueMatches returns the IDs of UPCOMING matches that have ended by now, plus how many
// candidates were skipped for bad data.
//
// Matches dated after today cannot have ended (a range crosses midnight into the following
// day at most), so the query only loads matches dated today or earlier.
func (u *Updater) dueMatches(ctx context.Context, now time.Time) ([]uuid.UUID, int, error) {
	var candidates []models.Match
	err := u.db.WithContext(ctx).
		Select("id", "date", "time_range", "status").
		Where("status = ? AND date <= ?", models.MatchStatusUpcoming, models.DateOf(now)).
		Find(&candidates).Error
	if err != nil {
		return nil, 0, fmt.Errorf("load upcoming matches: %w", err)
	}

	var (
		ids     []uuid.UUID
		skipped int
	)
	for _, m := range candidates {
		if _, ok := schedule.ParseTimeRange(m.TimeRange); !ok {
			skipped++
			u.logger.Warn("skipping match with malformed time range",
				slog.String("match_id", m.ID.String()),
				slog.String("time_range", m.TimeRange),
			)
			continue
		}
		if schedule.ResolveStatus(m.Day(), m.TimeRange, m.Status, now) == models.MatchStatusCompleted {
			ids = append(ids, m.ID)
		}
	}
	return ids, skipped, nil
}
