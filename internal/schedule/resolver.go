package schedule

import (
	"time"

	"github.com/trentd187/badminton-club/internal/models"
)

// ResolveStatus decides what status a match should have at now.
//
// Every write path (create, update, the batch updater) goes through this function so the
// rule lives in one place:
//   - a status other than UPCOMING is returned unchanged; matches never go back to UPCOMING
//   - an unparsable time range leaves the status unchanged
//   - otherwise the match is COMPLETED once its end instant is strictly before now
//
// The end instant is built in now's location: date supplies the calendar day and the time
// range supplies the clock time, so callers should pass now already converted to the
// club's timezone.
func ResolveStatus(date time.Time, timeRange string, current models.MatchStatus, now time.Time) models.MatchStatus {
	if current != models.MatchStatusUpcoming {
		return current
	}
	end, ok := EndInstant(date, timeRange, now.Location())
	if !ok {
		return current
	}
	if end.Before(now) {
		return models.MatchStatusCompleted
	}
	return models.MatchStatusUpcoming
}

// EndInstant parses timeRange and returns when a match on date ends, in loc.
func EndInstant(date time.Time, timeRange string, loc *time.Location) (time.Time, bool) {
	tr, ok := ParseTimeRange(timeRange)
	if !ok {
		return time.Time{}, false
	}
	return tr.EndAt(date, loc), true
}
