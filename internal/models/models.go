// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model represents a badminton club where:
//   - Matches are scheduled court sessions on a date with an "HH:MM-HH:MM" time range
//   - Players are the club roster
//   - MatchPlayers attach players to a match and track whether each one has paid their share
//   - Payments record money received from a player for a match
//
// Match and Player are independent. MatchPlayer and Payment belong to a (match, player) pair
// and are deleted together with either parent.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- Enums ---
// Go doesn't have a built-in enum keyword, so we simulate them using a named string type
// plus constants. The values are the canonical, upper-case tokens stored in the database;
// see normalize.go for how loosely formatted input is mapped onto them.

// MatchStatus tracks the lifecycle of a match. The only transition is UPCOMING -> COMPLETED.
type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "UPCOMING"  // Scheduled; the end of the time range has not passed yet
	MatchStatusCompleted MatchStatus = "COMPLETED" // The end of the time range is in the past
)

// PlayerStatus is a player's membership state in the club roster.
type PlayerStatus string

const (
	PlayerStatusActive    PlayerStatus = "ACTIVE"    // Regular member
	PlayerStatusInactive  PlayerStatus = "INACTIVE"  // Left the club or is on a break
	PlayerStatusTentative PlayerStatus = "TENTATIVE" // Guest or trial player, not yet a member
)

// MatchPaymentStatus records whether a player has paid their share for one match.
// The tokens are kept in Indonesian because that is how the club treasurer tracks them.
type MatchPaymentStatus string

const (
	MatchPaymentUnpaid MatchPaymentStatus = "BELUM_SETOR" // "not yet deposited"
	MatchPaymentPaid   MatchPaymentStatus = "SUDAH_SETOR" // "already deposited"
)

// PaymentStatus tracks a recorded payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// --- Models ---
// Each struct below maps to a database table. GORM uses the struct name (snake_cased and
// pluralized) as the table name by default: Match -> matches, MatchPlayer -> match_players.
//
// Primary keys are UUIDs generated in Go (see BeforeCreate) rather than by a database default,
// so the same models work against PostgreSQL and the SQLite database used in tests.

// Match is one booked court session.
type Match struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Title       string         `gorm:"not null"`
	Location    string         `gorm:"not null"`
	CourtNumber *string        // Optional court label ("3", "A"); pointer = nullable
	Date        datatypes.Date `gorm:"type:date;not null;index"` // Calendar date only; stored at UTC midnight
	TimeRange   string         `gorm:"column:time_range;not null"` // "HH:MM-HH:MM", may cross midnight
	Fee         int64          `gorm:"not null;default:0"`         // Smallest currency unit (rupiah)
	Status      MatchStatus    `gorm:"type:varchar(16);not null;default:'UPCOMING';index"`
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Players     []MatchPlayer `gorm:"foreignKey:MatchID"` // Roster for this match
}

// Player is a member (or guest) of the club.
// NameKey is the normalized form of Name and carries the unique index, so "Budi  Santoso" and
// "budi santoso" cannot both exist.
type Player struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Name      string       `gorm:"not null"`
	NameKey   string       `gorm:"not null;uniqueIndex:idx_players_name_key"`
	Email     *string
	Phone     *string
	Status    PlayerStatus `gorm:"type:varchar(16);not null;default:'ACTIVE'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchPlayer links a Player to a Match.
// The unique index (idx_match_players_pair) ensures a player can only be in a match once.
type MatchPlayer struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey"`
	MatchID       uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_match_players_pair"`
	Match         Match              `gorm:"foreignKey:MatchID"`
	PlayerID      uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_match_players_pair"`
	Player        Player             `gorm:"foreignKey:PlayerID"`
	PaymentStatus MatchPaymentStatus `gorm:"type:varchar(16);not null;default:'BELUM_SETOR'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Payment records money received from a player for a match.
// PaidAt is stamped when the status becomes PAID and cleared if it moves away from PAID.
type Payment struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	PlayerID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	Player    Player        `gorm:"foreignKey:PlayerID"`
	MatchID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	Match     Match         `gorm:"foreignKey:MatchID"`
	Amount    int64         `gorm:"not null"`
	Status    PaymentStatus `gorm:"type:varchar(16);not null;default:'PENDING'"`
	Method    *string       // "cash", "transfer", "qris", ...
	Notes     *string
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// All lists every model, in dependency order. Used by AutoMigrate in tests.
func All() []any {
	return []any{&Match{}, &Player{}, &MatchPlayer{}, &Payment{}}
}

// BeforeCreate fills in a new UUID when the caller did not set one.
func (m *Match) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate fills in a new UUID when the caller did not set one.
func (p *Player) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BeforeCreate fills in a new UUID when the caller did not set one.
func (mp *MatchPlayer) BeforeCreate(*gorm.DB) error {
	if mp.ID == uuid.Nil {
		mp.ID = uuid.New()
	}
	return nil
}

// BeforeCreate fills in a new UUID when the caller did not set one.
func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DateOf converts a calendar day into the value stored in Match.Date (midnight UTC),
// dropping any clock time and zone carried by t.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Day returns the match date as a time.Time at midnight UTC.
func (m Match) Day() time.Time {
	y, mo, d := time.Time(m.Date).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
