package handlers

// match_players.go - the roster of a match: /api/v1/matches/:id/players.

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/badminton-club/internal/models"
)

// pastMatchWindow is how many earlier completed matches GET .../players/past looks at.
const pastMatchWindow = 3

const errAlreadyInMatch = "player is already in this match"

// MatchPlayerResponse is one roster entry.
type MatchPlayerResponse struct {
	ID            string `json:"id"`
	MatchID       string `json:"matchId"`
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	PlayerStatus  string `json:"playerStatus"`
	PaymentStatus string `json:"paymentStatus"`
	CreatedAt     string `json:"createdAt"`
}

// AddMatchPlayerRequest is the body of POST /api/v1/matches/:id/players.
type AddMatchPlayerRequest struct {
	PlayerID      string  `json:"playerId" validate:"required,uuid"`
	PaymentStatus *string `json:"paymentStatus" validate:"omitempty,match_payment_status"`
}

// UpdateMatchPlayerRequest is the body of PUT /api/v1/matches/:id/players/:playerId.
type UpdateMatchPlayerRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,match_payment_status"`
}

func toMatchPlayerResponse(mp models.MatchPlayer) MatchPlayerResponse {
	return MatchPlayerResponse{
		ID:            mp.ID.String(),
		MatchID:       mp.MatchID.String(),
		PlayerID:      mp.PlayerID.String(),
		PlayerName:    mp.Player.Name,
		PlayerStatus:  string(mp.Player.Status),
		PaymentStatus: string(mp.PaymentStatus),
		CreatedAt:     formatTimestamp(mp.CreatedAt),
	}
}

// findMatch loads a match without its roster. It writes the 400/404/500 response itself
// and returns ok=false when the handler should stop.
func (e *Env) findMatch(c *fiber.Ctx, param string) (m models.Match, ok bool, err error) {
	id, valid := paramID(c, param)
	if !valid {
		return m, false, badRequest(c, "invalid match id")
	}
	if err := e.DB.WithContext(c.UserContext()).First(&m, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return m, false, notFound(c, "match")
		}
		return m, false, e.internalError(c, err, "failed to fetch match")
	}
	return m, true, nil
}

// ListMatchPlayers returns a handler for GET /api/v1/matches/:id/players.
func ListMatchPlayers(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, ok, err := env.findMatch(c, "id")
		if !ok {
			return err
		}

		var roster []models.MatchPlayer
		err = env.DB.WithContext(c.UserContext()).
			Preload("Player").
			Where("match_id = ?", m.ID).
			Order("created_at").
			Find(&roster).Error
		if err != nil {
			return env.internalError(c, err, "failed to fetch match players")
		}

		response := make([]MatchPlayerResponse, 0, len(roster))
		for _, mp := range roster {
			response = append(response, toMatchPlayerResponse(mp))
		}
		return c.JSON(response)
	}
}

// AddMatchPlayer returns a handler for POST /api/v1/matches/:id/players.
// Adding a player twice is rejected with 400 before the insert; the unique index on
// (match_id, player_id) catches the race where two requests pass the check together.
func AddMatchPlayer(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, ok, err := env.findMatch(c, "id")
		if !ok {
			return err
		}

		var req AddMatchPlayerRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}
		playerID := uuid.MustParse(req.PlayerID) // validated by the "uuid" rule

		db := env.DB.WithContext(c.UserContext())
		var player models.Player
		if err := db.First(&player, "id = ?", playerID).Error; err != nil {
			if isNotFound(err) {
				return notFound(c, "player")
			}
			return env.internalError(c, err, "failed to fetch player")
		}

		var existing int64
		if err := db.Model(&models.MatchPlayer{}).
			Where("match_id = ? AND player_id = ?", m.ID, playerID).
			Count(&existing).Error; err != nil {
			return env.internalError(c, err, "failed to add player")
		}
		if existing > 0 {
			return badRequest(c, errAlreadyInMatch)
		}

		mp := models.MatchPlayer{
			MatchID:       m.ID,
			PlayerID:      playerID,
			PaymentStatus: models.MatchPaymentUnpaid,
		}
		if req.PaymentStatus != nil {
			mp.PaymentStatus, _ = models.ParseMatchPaymentStatus(*req.PaymentStatus)
		}
		if err := db.Create(&mp).Error; err != nil {
			if isDuplicate(err) {
				return badRequest(c, errAlreadyInMatch)
			}
			return env.internalError(c, err, "failed to add player")
		}
		mp.Player = player

		env.notify("roster", m.ID)
		return c.Status(fiber.StatusCreated).JSON(toMatchPlayerResponse(mp))
	}
}

// UpdateMatchPlayer returns a handler for PUT /api/v1/matches/:id/players/:playerId.
// Only the per-match payment status can change.
func UpdateMatchPlayer(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}
		playerID, ok := paramID(c, "playerId")
		if !ok {
			return badRequest(c, "invalid player id")
		}

		var req UpdateMatchPlayerRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}
		paymentStatus, _ := models.ParseMatchPaymentStatus(req.PaymentStatus)

		db := env.DB.WithContext(c.UserContext())
		var mp models.MatchPlayer
		if err := db.Preload("Player").
			First(&mp, "match_id = ? AND player_id = ?", matchID, playerID).Error; err != nil {
			if isNotFound(err) {
				return notFound(c, "match player")
			}
			return env.internalError(c, err, "failed to fetch match player")
		}

		if err := db.Model(&mp).Update("payment_status", paymentStatus).Error; err != nil {
			return env.internalError(c, err, "failed to update match player")
		}
		mp.PaymentStatus = paymentStatus

		env.notify("roster", matchID)
		return c.JSON(toMatchPlayerResponse(mp))
	}
}

// RemoveMatchPlayer returns a handler for DELETE /api/v1/matches/:id/players/:playerId.
func RemoveMatchPlayer(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid match id")
		}
		playerID, ok := paramID(c, "playerId")
		if !ok {
			return badRequest(c, "invalid player id")
		}

		res := env.DB.WithContext(c.UserContext()).
			Where("match_id = ? AND player_id = ?", matchID, playerID).
			Delete(&models.MatchPlayer{})
		if res.Error != nil {
			return env.internalError(c, res.Error, "failed to remove player")
		}
		if res.RowsAffected == 0 {
			return notFound(c, "match player")
		}

		env.notify("roster", matchID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PastPlayers returns a handler for GET /api/v1/matches/:id/players/past.
//
// It suggests players for a match from the rosters of the three most recent COMPLETED
// matches dated strictly before it. Players are deduplicated by normalized name, and
// anyone already in this match is left out.
func PastPlayers(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, ok, err := env.findMatch(c, "id")
		if !ok {
			return err
		}

		db := env.DB.WithContext(c.UserContext())
		var pastIDs []uuid.UUID
		err = db.Model(&models.Match{}).
			Where("status = ? AND date < ?", models.MatchStatusCompleted, m.Date).
			Order("date DESC").Order("created_at DESC").
			Limit(pastMatchWindow).
			Pluck("id", &pastIDs).Error
		if err != nil {
			return env.internalError(c, err, "failed to fetch past players")
		}
		if len(pastIDs) == 0 {
			return c.JSON([]PlayerResponse{})
		}

		var candidates []models.Player
		err = db.Model(&models.Player{}).
			Where("id IN (?)", db.Model(&models.MatchPlayer{}).Select("player_id").Where("match_id IN ?", pastIDs)).
			Where("id NOT IN (?)", db.Model(&models.MatchPlayer{}).Select("player_id").Where("match_id = ?", m.ID)).
			Order("name").Order("created_at").
			Find(&candidates).Error
		if err != nil {
			return env.internalError(c, err, "failed to fetch past players")
		}

		response := make([]PlayerResponse, 0, len(candidates))
		seen := make(map[string]bool, len(candidates))
		for _, p := range candidates {
			key := models.NormalizeName(p.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			response = append(response, toPlayerResponse(p))
		}
		return c.JSON(response)
	}
}
