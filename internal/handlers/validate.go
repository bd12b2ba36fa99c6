package handlers

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trentd187/badminton-club/internal/models"
	"github.com/trentd187/badminton-club/internal/schedule"
)

const dateLayout = "2006-01-02"

// newValidator returns a validator that reports fields by their JSON names and knows
// the club's custom rules: "timerange" and one rule per status enum. Enum rules accept
// the same loose spellings as the models.Parse* functions.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]func(string) bool{
		"timerange": func(s string) bool {
			_, ok := schedule.ParseTimeRange(s)
			return ok
		},
		"match_status": func(s string) bool {
			_, ok := models.ParseMatchStatus(s)
			return ok
		},
		"player_status": func(s string) bool {
			_, ok := models.ParsePlayerStatus(s)
			return ok
		},
		"match_payment_status": func(s string) bool {
			_, ok := models.ParseMatchPaymentStatus(s)
			return ok
		},
		"payment_status": func(s string) bool {
			_, ok := models.ParsePaymentStatus(s)
			return ok
		},
	}
	for tag, fn := range rules {
		fn := fn
		// Only fails on misconfiguration (bad tag name), which is a programming error.
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	return v
}

// parseDate parses a "YYYY-MM-DD" date. Request DTOs validate the format first with
// the "datetime" rule, so errors here only come from query parameters.
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}
