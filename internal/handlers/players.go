package handlers

// players.go - the /api/v1/players routes.
//
// Player names are unique after normalization (case, width and whitespace are ignored).
// The normalized form lives in players.name_key, which carries the unique index.

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/models"
)

const errDuplicateName = "a player with this name already exists"

// PlayerResponse is the JSON shape of a player.
type PlayerResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// CreatePlayerRequest is the JSON body we expect on POST /api/v1/players.
// Status defaults to ACTIVE.
type CreatePlayerRequest struct {
	Name   string  `json:"name" validate:"required,max=100"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Phone  *string `json:"phone" validate:"omitempty,max=30"`
	Status *string `json:"status" validate:"omitempty,player_status"`
}

// UpdatePlayerRequest is the body of PUT /api/v1/players/:id. Only supplied fields change.
type UpdatePlayerRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Phone  *string `json:"phone" validate:"omitempty,max=30"`
	Status *string `json:"status" validate:"omitempty,player_status"`
}

func toPlayerResponse(p models.Player) PlayerResponse {
	return PlayerResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Status:    string(p.Status),
		CreatedAt: formatTimestamp(p.CreatedAt),
		UpdatedAt: formatTimestamp(p.UpdatedAt),
	}
}

// displayName collapses runs of whitespace so "  Budi   Santoso " is stored as "Budi Santoso".
func displayName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// nameTaken reports whether another player already uses the normalized name.
func nameTaken(db *gorm.DB, key string, except uuid.UUID) (bool, error) {
	var n int64
	q := db.Model(&models.Player{}).Where("name_key = ?", key)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// ListPlayers returns a handler for GET /api/v1/players.
// Optional query params: ?status= and ?q= (case-insensitive name search). Ordered by name.
func ListPlayers(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := env.DB.WithContext(c.UserContext()).Model(&models.Player{})

		if raw := c.Query("status"); raw != "" {
			st, ok := models.ParsePlayerStatus(raw)
			if !ok {
				return badRequest(c, "status must be ACTIVE, INACTIVE or TENTATIVE")
			}
			query = query.Where("status = ?", st)
		}
		if q := models.NormalizeName(c.Query("q")); q != "" {
			query = query.Where(`name_key LIKE ? ESCAPE '\'`, "%"+escapeLike(q)+"%")
		}

		var players []models.Player
		if err := query.Order("name_key").Find(&players).Error; err != nil {
			return env.internalError(c, err, "failed to fetch players")
		}

		response := make([]PlayerResponse, 0, len(players))
		for _, p := range players {
			response = append(response, toPlayerResponse(p))
		}
		return c.JSON(response)
	}
}

// GetPlayer returns a handler for GET /api/v1/players/:id.
func GetPlayer(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid player id")
		}

		var p models.Player
		if err := env.DB.WithContext(c.UserContext()).First(&p, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return notFound(c, "player")
			}
			return env.internalError(c, err, "failed to fetch player")
		}
		return c.JSON(toPlayerResponse(p))
	}
}

// CreatePlayer returns a handler for POST /api/v1/players.
func CreatePlayer(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreatePlayerRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}

		name := displayName(req.Name)
		key := models.NormalizeName(name)
		if key == "" {
			return badRequest(c, "name is required")
		}

		db := env.DB.WithContext(c.UserContext())
		taken, err := nameTaken(db, key, uuid.Nil)
		if err != nil {
			return env.internalError(c, err, "failed to create player")
		}
		if taken {
			return conflict(c, errDuplicateName)
		}

		p := models.Player{
			Name:    name,
			NameKey: key,
			Email:   trimmed(req.Email),
			Phone:   trimmed(req.Phone),
			Status:  models.PlayerStatusActive,
		}
		if req.Status != nil {
			p.Status, _ = models.ParsePlayerStatus(*req.Status)
		}

		if err := db.Create(&p).Error; err != nil {
			if isDuplicate(err) {
				return conflict(c, errDuplicateName)
			}
			return env.internalError(c, err, "failed to create player")
		}
		return c.Status(fiber.StatusCreated).JSON(toPlayerResponse(p))
	}
}

// UpdatePlayer returns a handler for PUT /api/v1/players/:id.
func UpdatePlayer(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid player id")
		}

		var req UpdatePlayerRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}

		db := env.DB.WithContext(c.UserContext())
		var p models.Player
		if err := db.First(&p, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return notFound(c, "player")
			}
			return env.internalError(c, err, "failed to fetch player")
		}

		updates := map[string]any{}
		if req.Name != nil {
			name := displayName(*req.Name)
			key := models.NormalizeName(name)
			if key == "" {
				return badRequest(c, "name cannot be empty")
			}
			taken, err := nameTaken(db, key, id)
			if err != nil {
				return env.internalError(c, err, "failed to update player")
			}
			if taken {
				return conflict(c, errDuplicateName)
			}
			p.Name, p.NameKey = name, key
			updates["name"] = name
			updates["name_key"] = key
		}
		if req.Email != nil {
			p.Email = trimmed(req.Email)
			updates["email"] = p.Email
		}
		if req.Phone != nil {
			p.Phone = trimmed(req.Phone)
			updates["phone"] = p.Phone
		}
		if req.Status != nil {
			p.Status, _ = models.ParsePlayerStatus(*req.Status)
			updates["status"] = p.Status
		}

		if len(updates) > 0 {
			if err := db.Model(&p).Updates(updates).Error; err != nil {
				if isDuplicate(err) {
					return conflict(c, errDuplicateName)
				}
				return env.internalError(c, err, "failed to update player")
			}
			if req.Name != nil || req.Status != nil {
				// Rosters show names and statuses; dashboards showing those rosters should refetch.
				if ids, err := matchesOfPlayer(db, id); err == nil && len(ids) > 0 {
					env.notify("roster", ids...)
				}
			}
		}
		return c.JSON(toPlayerResponse(p))
	}
}

// DeletePlayer returns a handler for DELETE /api/v1/players/:id.
// The player's roster entries and payments are removed in the same transaction.
func DeletePlayer(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid player id")
		}

		var (
			deleted  int64
			affected []uuid.UUID
		)
		err := env.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			if affected, err = matchesOfPlayer(tx, id); err != nil {
				return err
			}
			if err := tx.Where("player_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("player_id = ?", id).Delete(&models.MatchPlayer{}).Error; err != nil {
				return err
			}
			res := tx.Where("id = ?", id).Delete(&models.Player{})
			deleted = res.RowsAffected
			return res.Error
		})
		if err != nil {
			return env.internalError(c, err, "failed to delete player")
		}
		if deleted == 0 {
			return notFound(c, "player")
		}

		if len(affected) > 0 {
			env.notify("roster", affected...)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func matchesOfPlayer(db *gorm.DB, playerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Model(&models.MatchPlayer{}).Where("player_id = ?", playerID).Pluck("match_id", &ids).Error
	return ids, err
}
