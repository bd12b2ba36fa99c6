package handlers

// matches.go - the /api/v1/matches routes.
//
// Every write path runs the requested date, time range and status through
// schedule.ResolveStatus before saving, so a match dated in the past is stored as
// COMPLETED straight away instead of waiting for the next batch update.

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/models"
	"github.com/trentd187/badminton-club/internal/schedule"
	"github.com/trentd187/badminton-club/internal/status"
)

// MatchResponse is what we send back to the dashboard.
// PlayerCount and PaidCount are computed from the roster; Players is only filled in
// on the detail endpoint.
type MatchResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Location    string                `json:"location"`
	CourtNumber *string               `json:"courtNumber"`
	Date        string                `json:"date"` // "YYYY-MM-DD"
	Time        string                `json:"time"` // "HH:MM-HH:MM"
	Fee         int64                 `json:"fee"`
	Status      string                `json:"status"`
	Description *string               `json:"description"`
	PlayerCount int64                 `json:"playerCount"`
	PaidCount   int64                 `json:"paidCount"`
	Players     []MatchPlayerResponse `json:"players,omitempty"`
	CreatedAt   string                `json:"createdAt"`
	UpdatedAt   string                `json:"updatedAt"`
}

// CreateMatchRequest is the JSON body we expect on POST /api/v1/matches.
// Fee defaults to 0 when omitted.
type CreateMatchRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=120"`
	Location    string  `json:"location" validate:"required,max=120"`
	CourtNumber *string `json:"courtNumber" validate:"omitempty,max=20"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string  `json:"time" validate:"required,timerange"`
	Fee         *int64  `json:"fee" validate:"omitempty,gte=0"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// UpdateMatchRequest is the body of PUT /api/v1/matches/:id. Only supplied fields change.
type UpdateMatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=120"`
	Location    *string `json:"location" validate:"omitempty,min=1,max=120"`
	CourtNumber *string `json:"courtNumber" validate:"omitempty,max=20"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        *string `json:"time" validate:"omitempty,timerange"`
	Fee         *int64  `json:"fee" validate:"omitempty,gte=0"`
	Status      *string `json:"status" validate:"omitempty,match_status"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type rosterCount struct {
	MatchID uuid.UUID
	Players int64
	Paid    int64
}

func toMatchResponse(m models.Match, counts rosterCount) MatchResponse {
	return MatchResponse{
		ID:          m.ID.String(),
		Title:       m.Title,
		Location:    m.Location,
		CourtNumber: m.CourtNumber,
		Date:        formatDate(m.Day()),
		Time:        m.TimeRange,
		Fee:         m.Fee,
		Status:      string(m.Status),
		Description: m.Description,
		PlayerCount: counts.Players,
		PaidCount:   counts.Paid,
		CreatedAt:   formatTimestamp(m.CreatedAt),
		UpdatedAt:   formatTimestamp(m.UpdatedAt),
	}
}

// rosterCounts returns player and paid counts per match in one grouped query.
func rosterCounts(db *gorm.DB, matchIDs []uuid.UUID) (map[uuid.UUID]rosterCount, error) {
	out := make(map[uuid.UUID]rosterCount, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}
	var rows []rosterCount
	err := db.Model(&models.MatchPlayer{}).
		Select("match_id, COUNT(*) AS players, SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END) AS paid", models.MatchPaymentPaid).
		Where("match_id IN ?", matchIDs).
		Group("match_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.MatchID] = r
	}
	return out, nil
}

// loadMatch fetches one match with its roster (players ordered by when they joined).
func loadMatch(db *gorm.DB, id uuid.UUID) (models.Match, error) {
	var m models.Match
	err := db.
		Preload("Players", func(tx *gorm.DB) *gorm.DB { return tx.Order("match_players.created_at") }).
		Preload("Players.Player").
		First(&m, "id = ?", id).Error
	return m, err
}

func matchDetail(m models.Match) MatchResponse {
	players := make([]MatchPlayerResponse, 0, len(m.Players))
	counts := rosterCount{MatchID: m.ID}
	for _, mp := range m.Players {
		players = append(players, toMatchPlayerResponse(mp))
		counts.Players++
		if mp.PaymentStatus == models.MatchPaymentPaid {
			counts.Paid++
		}
	}
	resp := toMatchResponse(m, counts)
	resp.Players = players
	return resp
}

// ListMatches returns a handler for GET /api/v1/matches.
// Optional query params: ?status=, ?from=YYYY-MM-DD, ?to=YYYY-MM-DD, ?order=asc|desc.
// The default order is newest date first.
func ListMatches(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := env.DB.WithContext(c.UserContext()).Model(&models.Match{})

		if raw := c.Query("status"); raw != "" {
			st, ok := models.ParseMatchStatus(raw)
			if !ok {
				return badRequest(c, "status must be UPCOMING or COMPLETED")
			}
			query = query.Where("status = ?", st)
		}
		if raw := c.Query("from"); raw != "" {
			from, err := parseDate(raw)
			if err != nil {
				return badRequest(c, "from must be in YYYY-MM-DD format")
			}
			query = query.Where("date >= ?", models.DateOf(from))
		}
		if raw := c.Query("to"); raw != "" {
			to, err := parseDate(raw)
			if err != nil {
				return badRequest(c, "to must be in YYYY-MM-DD format")
			}
			query = query.Where("date <= ?", models.DateOf(to))
		}

		switch strings.ToLower(c.Query("order", "desc")) {
		case "asc":
			query = query.Order("date ASC").Order("created_at ASC")
		case "desc":
			query = query.Order("date DESC").Order("created_at DESC")
		default:
			return badRequest(c, "order must be asc or desc")
		}

		var matches []models.Match
		if err := query.Find(&matches).Error; err != nil {
			return env.internalError(c, err, "failed to fetch matches")
		}

		ids := make([]uuid.UUID, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		counts, err := rosterCounts(env.DB.WithContext(c.UserContext()), ids)
		if err != nil {
			return env.internalError(c, err, "failed to fetch matches")
		}

		response := make([]MatchResponse, 0, len(matches))
		for _, m := range matches {
			response = append(response, toMatchResponse(m, counts[m.ID]))
		}
		return c.JSON(response)
	}
}

// GetMatch returns a handler for GET /api/v1/matches/:id, including the roster.
func GetMatch(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}

		m, err := loadMatch(env.DB.WithContext(c.UserContext()), id)
		if isNotFound(err) {
			return notFound(c, "match")
		}
		if err != nil {
			return env.internalError(c, err, "failed to fetch match")
		}
		return c.JSON(matchDetail(m))
	}
}

// CreateMatch returns a handler for POST /api/v1/matches.
// New matches start as UPCOMING and are resolved against the clock before insert.
func CreateMatch(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateMatchRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}

		date, err := parseDate(req.Date)
		if err != nil {
			return badRequest(c, "date must be in YYYY-MM-DD format")
		}
		// Validation already checked the format; re-render it so "9:00-11:00" is stored as "09:00-11:00".
		tr, _ := schedule.ParseTimeRange(req.Time)

		m := models.Match{
			Title:       strings.TrimSpace(req.Title),
			Location:    strings.TrimSpace(req.Location),
			CourtNumber: trimmed(req.CourtNumber),
			Date:        models.DateOf(date),
			TimeRange:   tr.String(),
			Description: req.Description,
			Status:      models.MatchStatusUpcoming,
		}
		if req.Fee != nil {
			m.Fee = *req.Fee
		}
		m.Status = schedule.ResolveStatus(m.Day(), m.TimeRange, m.Status, env.now())

		if err := env.DB.WithContext(c.UserContext()).Create(&m).Error; err != nil {
			return env.internalError(c, err, "failed to create match")
		}

		env.notify("created", m.ID)
		return c.Status(fiber.StatusCreated).JSON(matchDetail(m))
	}
}

// updateMatchAttempts bounds how often UpdateMatch re-reads a match whose status changed
// under it before giving up with 409.
const updateMatchAttempts = 3

// UpdateMatch returns a handler for PUT /api/v1/matches/:id.
//
// The stored status only moves forward on its own: changing the date or time of a
// COMPLETED match leaves it COMPLETED. An admin who needs to reopen a match sends
// "status": "UPCOMING" explicitly, and that request is resolved like any other write.
//
// status is only written when the request sets it or the edit changes the resolved value,
// and that write is guarded by the status that was read. A batch run that completes the
// match in between makes the guard miss, and the handler re-reads and resolves again.
func UpdateMatch(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}

		var req UpdateMatchRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}

		var date *time.Time
		if req.Date != nil {
			d, err := parseDate(*req.Date)
			if err != nil {
				return badRequest(c, "date must be in YYYY-MM-DD format")
			}
			date = &d
		}

		db := env.DB.WithContext(c.UserContext())
		for attempt := 1; ; attempt++ {
			var m models.Match
			if err := db.First(&m, "id = ?", id).Error; err != nil {
				if isNotFound(err) {
					return notFound(c, "match")
				}
				return env.internalError(c, err, "failed to fetch match")
			}

			read := m.Status
			updates := applyMatchUpdate(&m, &req, date)
			if len(updates) == 0 && req.Status == nil {
				return returnMatch(c, env, id)
			}

			resolved := schedule.ResolveStatus(m.Day(), m.TimeRange, m.Status, env.now())
			if req.Status == nil && resolved == read {
				if err := db.Model(&models.Match{}).Where("id = ?", id).Updates(updates).Error; err != nil {
					return env.internalError(c, err, "failed to update match")
				}
				break
			}

			updates["status"] = resolved
			res := db.Model(&models.Match{}).Where("id = ? AND status = ?", id, read).Updates(updates)
			if res.Error != nil {
				return env.internalError(c, res.Error, "failed to update match")
			}
			if res.RowsAffected > 0 {
				break
			}
			if attempt == updateMatchAttempts {
				return conflict(c, "match changed while updating, try again")
			}
		}

		env.notify("updated", id)
		return returnMatch(c, env, id)
	}
}

// applyMatchUpdate copies the supplied fields of req onto m and returns them as a column map,
// so omitted fields keep their stored values. status is left to the caller.
func applyMatchUpdate(m *models.Match, req *UpdateMatchRequest, date *time.Time) map[string]any {
	updates := map[string]any{}
	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
		updates["title"] = m.Title
	}
	if req.Location != nil {
		m.Location = strings.TrimSpace(*req.Location)
		updates["location"] = m.Location
	}
	if req.CourtNumber != nil {
		m.CourtNumber = trimmed(req.CourtNumber)
		updates["court_number"] = m.CourtNumber
	}
	if date != nil {
		m.Date = models.DateOf(*date)
		updates["date"] = m.Date
	}
	if req.Time != nil {
		tr, _ := schedule.ParseTimeRange(*req.Time)
		m.TimeRange = tr.String()
		updates["time_range"] = m.TimeRange
	}
	if req.Fee != nil {
		m.Fee = *req.Fee
		updates["fee"] = m.Fee
	}
	if req.Description != nil {
		m.Description = req.Description
		updates["description"] = m.Description
	}
	if req.Status != nil {
		m.Status, _ = models.ParseMatchStatus(*req.Status)
	}
	return updates
}

func returnMatch(c *fiber.Ctx, env *Env, id uuid.UUID) error {
	m, err := loadMatch(env.DB.WithContext(c.UserContext()), id)
	if isNotFound(err) {
		return notFound(c, "match")
	}
	if err != nil {
		return env.internalError(c, err, "failed to fetch match")
	}
	return c.JSON(matchDetail(m))
}

// DeleteMatch returns a handler for DELETE /api/v1/matches/:id.
// The roster and payments for the match are removed in the same transaction.
func DeleteMatch(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}

		var deleted int64
		err := env.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("match_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("match_id = ?", id).Delete(&models.MatchPlayer{}).Error; err != nil {
				return err
			}
			res := tx.Where("id = ?", id).Delete(&models.Match{})
			deleted = res.RowsAffected
			return res.Error
		})
		if err != nil {
			return env.internalError(c, err, "failed to delete match")
		}
		if deleted == 0 {
			return notFound(c, "match")
		}

		env.notify("deleted", id)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AutoUpdateMatches returns a handler for POST /api/v1/matches/auto-update.
// Dashboards call it on every load so statuses are fresh before they read anything.
func AutoUpdateMatches(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := env.Updater.Run(c.UserContext(), env.now(), status.TriggerClient)
		if err != nil {
			return env.internalError(c, err, "failed to update match statuses")
		}
		return c.JSON(fiber.Map{"updatedCount": n})
	}
}

// trimmed trims an optional string, turning a blank value into nil.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
