package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Every error response has the shape {"error": "..."}; validation failures add a
// "details" object keyed by JSON field name.

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": what + " not found"})
}

func conflict(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
}

// internalError logs the real cause and returns a generic message to the caller.
func (e *Env) internalError(c *fiber.Ctx, err error, msg string) error {
	e.Logger.Error(msg,
		slog.Any("error", err),
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Any("request_id", c.Locals("requestid")),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}

// validationFailed converts validator errors into a per-field details map.
func validationFailed(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return badRequest(c, "invalid input")
	}

	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		details[fe.Field()] = describe(fe)
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "validation failed",
		"details": details,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid id"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "timerange":
		return "must be a time range in HH:MM-HH:MM format"
	case "match_status":
		return "must be UPCOMING or COMPLETED"
	case "player_status":
		return "must be ACTIVE, INACTIVE or TENTATIVE"
	case "match_payment_status":
		return "must be BELUM_SETOR or SUDAH_SETOR"
	case "payment_status":
		return "must be PENDING, PAID or CANCELLED"
	default:
		return "is invalid"
	}
}

// bind parses the JSON body into req and runs struct validation. When ok is false the
// error response has already been written and the handler should return err as is.
func (e *Env) bind(c *fiber.Ctx, req any) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		return false, badRequest(c, "invalid request body")
	}
	if err := e.validate.Struct(req); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

// paramID parses a UUID route parameter.
func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// escapeLike escapes LIKE wildcards in user input; patterns use ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ErrorHandler is the Fiber app's error handler. Errors that escape a handler (unknown
// routes, oversized bodies, panics turned into errors by the recover middleware) get the
// same {"error": "..."} body as everything else.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		logger.Error("unhandled request error",
			slog.Any("error", err),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
