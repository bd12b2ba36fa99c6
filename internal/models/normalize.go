package models

// normalize.go turns loosely formatted user input into canonical values.
// Older data used mixed casing ("active", "Active") and localized tokens with spaces
// ("belum setor"), so every status coming in over the API goes through one of the
// Parse* functions below before it is written.

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName produces the uniqueness key for a player name:
// Unicode NFKC composed, case folded, and with all runs of whitespace collapsed to one space.
// "  Budi   SANTOSO " and "budi santoso" share the key "budi santoso".
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	// cases.Caser keeps internal state, so a fresh one is made per call.
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// canonicalToken upper-cases s and replaces spaces and dashes with underscores,
// so "belum setor", "Belum-Setor" and "BELUM_SETOR" all become "BELUM_SETOR".
func canonicalToken(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}

// ParseMatchStatus maps input onto a MatchStatus. ok is false for unknown values.
func ParseMatchStatus(s string) (MatchStatus, bool) {
	switch MatchStatus(canonicalToken(s)) {
	case MatchStatusUpcoming:
		return MatchStatusUpcoming, true
	case MatchStatusCompleted:
		return MatchStatusCompleted, true
	}
	return "", false
}

// ParsePlayerStatus maps input onto a PlayerStatus. ok is false for unknown values.
func ParsePlayerStatus(s string) (PlayerStatus, bool) {
	switch PlayerStatus(canonicalToken(s)) {
	case PlayerStatusActive:
		return PlayerStatusActive, true
	case PlayerStatusInactive:
		return PlayerStatusInactive, true
	case PlayerStatusTentative:
		return PlayerStatusTentative, true
	}
	return "", false
}

// ParseMatchPaymentStatus maps input onto a MatchPaymentStatus.
// "UNPAID" and "PAID" are accepted as English aliases.
func ParseMatchPaymentStatus(s string) (MatchPaymentStatus, bool) {
	switch canonicalToken(s) {
	case string(MatchPaymentUnpaid), "UNPAID":
		return MatchPaymentUnpaid, true
	case string(MatchPaymentPaid), "PAID":
		return MatchPaymentPaid, true
	}
	return "", false
}

// ParsePaymentStatus maps input onto a PaymentStatus. "CANCELED" is accepted as an alias.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch canonicalToken(s) {
	case string(PaymentStatusPending):
		return PaymentStatusPending, true
	case string(PaymentStatusPaid):
		return PaymentStatusPaid, true
	case string(PaymentStatusCancelled), "CANCELED":
		return PaymentStatusCancelled, true
	}
	return "", false
}
