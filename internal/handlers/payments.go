package handlers

// payments.go - the /api/v1/payments routes.
//
// A payment records money a player handed over for a match. PaidAt follows the status:
// it is stamped when the payment becomes PAID and cleared if it moves away from PAID.

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/badminton-club/internal/models"
)

// PaymentResponse is the JSON shape of a payment.
type PaymentResponse struct {
	ID         string  `json:"id"`
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	MatchID    string  `json:"matchId"`
	MatchTitle string  `json:"matchTitle"`
	MatchDate  string  `json:"matchDate"`
	Amount     int64   `json:"amount"`
	Status     string  `json:"status"`
	Method     *string `json:"method"`
	Notes      *string `json:"notes"`
	PaidAt     *string `json:"paidAt"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

// CreatePaymentRequest is the JSON body we expect on POST /api/v1/payments.
// Amount defaults to the match fee and Status to PENDING.
type CreatePaymentRequest struct {
	PlayerID string  `json:"playerId" validate:"required,uuid"`
	MatchID  string  `json:"matchId" validate:"required,uuid"`
	Amount   *int64  `json:"amount" validate:"omitempty,gte=0"`
	Status   *string `json:"status" validate:"omitempty,payment_status"`
	Method   *string `json:"method" validate:"omitempty,max=30"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
}

// UpdatePaymentRequest is the body of PUT /api/v1/payments/:id. Only supplied fields change;
// the player and match of a payment are fixed once it is recorded.
type UpdatePaymentRequest struct {
	Amount *int64  `json:"amount" validate:"omitempty,gte=0"`
	Status *string `json:"status" validate:"omitempty,payment_status"`
	Method *string `json:"method" validate:"omitempty,max=30"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

func toPaymentResponse(p models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID.String(),
		PlayerID:   p.PlayerID.String(),
		PlayerName: p.Player.Name,
		MatchID:    p.MatchID.String(),
		MatchTitle: p.Match.Title,
		MatchDate:  formatDate(p.Match.Day()),
		Amount:     p.Amount,
		Status:     string(p.Status),
		Method:     p.Method,
		Notes:      p.Notes,
		PaidAt:     formatOptionalTimestamp(p.PaidAt),
		CreatedAt:  formatTimestamp(p.CreatedAt),
		UpdatedAt:  formatTimestamp(p.UpdatedAt),
	}
}

// paidAtFor returns the PaidAt value for a payment moving from prev to next.
// A payment that was already PAID keeps its original timestamp.
func paidAtFor(prev models.PaymentStatus, prevAt *time.Time, next models.PaymentStatus, now time.Time) *time.Time {
	if next != models.PaymentStatusPaid {
		return nil
	}
	if prev == models.PaymentStatusPaid && prevAt != nil {
		return prevAt
	}
	t := now.UTC()
	return &t
}

// ListPayments returns a handler for GET /api/v1/payments, newest first.
// Optional query params: ?playerId=, ?matchId=, ?status=.
func ListPayments(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := env.DB.WithContext(c.UserContext()).
			Preload("Player").
			Preload("Match")

		if raw := c.Query("playerId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return badRequest(c, "invalid player id")
			}
			query = query.Where("player_id = ?", id)
		}
		if raw := c.Query("matchId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return badRequest(c, "invalid match id")
			}
			query = query.Where("match_id = ?", id)
		}
		if raw := c.Query("status"); raw != "" {
			st, ok := models.ParsePaymentStatus(raw)
			if !ok {
				return badRequest(c, "status must be PENDING, PAID or CANCELLED")
			}
			query = query.Where("status = ?", st)
		}

		var payments []models.Payment
		if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
			return env.internalError(c, err, "failed to fetch payments")
		}

		response := make([]PaymentResponse, 0, len(payments))
		for _, p := range payments {
			response = append(response, toPaymentResponse(p))
		}
		return c.JSON(response)
	}
}

// GetPayment returns a handler for GET /api/v1/payments/:id.
func GetPayment(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid payment id")
		}

		var p models.Payment
		err := env.DB.WithContext(c.UserContext()).
			Preload("Player").
			Preload("Match").
			First(&p, "id = ?", id).Error
		if isNotFound(err) {
			return notFound(c, "payment")
		}
		if err != nil {
			return env.internalError(c, err, "failed to fetch payment")
		}
		return c.JSON(toPaymentResponse(p))
	}
}

// CreatePayment returns a handler for POST /api/v1/payments.
func CreatePayment(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreatePaymentRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}

		db := env.DB.WithContext(c.UserContext())
		var player models.Player
		if err := db.First(&player, "id = ?", uuid.MustParse(req.PlayerID)).Error; err != nil {
			if isNotFound(err) {
				return notFound(c, "player")
			}
			return env.internalError(c, err, "failed to fetch player")
		}
		var match models.Match
		if err := db.First(&match, "id = ?", uuid.MustParse(req.MatchID)).Error; err != nil {
			if isNotFound(err) {
				return notFound(c, "match")
			}
			return env.internalError(c, err, "failed to fetch match")
		}

		p := models.Payment{
			PlayerID: player.ID,
			MatchID:  match.ID,
			Amount:   match.Fee,
			Status:   models.PaymentStatusPending,
			Method:   trimmed(req.Method),
			Notes:    req.Notes,
		}
		if req.Amount != nil {
			p.Amount = *req.Amount
		}
		if req.Status != nil {
			p.Status, _ = models.ParsePaymentStatus(*req.Status)
		}
		p.PaidAt = paidAtFor("", nil, p.Status, env.now())

		// Omit the associations so GORM does not try to upsert the parents.
		if err := db.Omit("Player", "Match").Create(&p).Error; err != nil {
			return env.internalError(c, err, "failed to create payment")
		}
		p.Player, p.Match = player, match
		return c.Status(fiber.StatusCreated).JSON(toPaymentResponse(p))
	}
}

// UpdatePayment returns a handler for PUT /api/v1/payments/:id.
func UpdatePayment(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid payment id")
		}

		var req UpdatePaymentRequest
		if ok, err := env.bind(c, &req); !ok {
			return err
		}

		db := env.DB.WithContext(c.UserContext())
		var p models.Payment
		if err := db.Preload("Player").Preload("Match").First(&p, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return notFound(c, "payment")
			}
			return env.internalError(c, err, "failed to fetch payment")
		}

		updates := map[string]any{}
		if req.Amount != nil {
			p.Amount = *req.Amount
			updates["amount"] = p.Amount
		}
		if req.Method != nil {
			p.Method = trimmed(req.Method)
			updates["method"] = p.Method
		}
		if req.Notes != nil {
			p.Notes = req.Notes
			updates["notes"] = p.Notes
		}
		if req.Status != nil {
			next, _ := models.ParsePaymentStatus(*req.Status)
			p.PaidAt = paidAtFor(p.Status, p.PaidAt, next, env.now())
			p.Status = next
			updates["status"] = p.Status
			updates["paid_at"] = p.PaidAt
		}

		if len(updates) > 0 {
			err := db.Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error
			if err != nil {
				return env.internalError(c, err, "failed to update payment")
			}
			p.UpdatedAt = time.Now()
		}
		return c.JSON(toPaymentResponse(p))
	}
}

// DeletePayment returns a handler for DELETE /api/v1/payments/:id.
func DeletePayment(env *Env) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid payment id")
		}

		res := env.DB.WithContext(c.UserContext()).Where("id = ?", id).Delete(&models.Payment{})
		if res.Error != nil {
			return env.internalError(c, res.Error, "failed to delete payment")
		}
		if res.RowsAffected == 0 {
			return notFound(c, "payment")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
