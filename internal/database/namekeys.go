package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/models"
)

// RebuildNameKeys recomputes players.name_key with models.NormalizeName, the same rule the
// handlers use for duplicate checks. SQL cannot reproduce it (NFKC and full case folding), so
// this runs from Go at startup, after the migrations.
//
// Players whose names collide under the current rule keep their old keys and are logged for
// an admin to merge or rename; the unique index is never violated. Returns how many keys changed.
func RebuildNameKeys(ctx context.Context, db *gorm.DB, log *slog.Logger) (int, error) {
	var players []models.Player
	if err := db.WithContext(ctx).Select("id", "name", "name_key").Find(&players).Error; err != nil {
		return 0, fmt.Errorf("load player names: %w", err)
	}

	final := make(map[uuid.UUID]string, len(players))
	current := make(map[uuid.UUID]string, len(players))
	for _, p := range players {
		current[p.ID] = p.NameKey
		final[p.ID] = models.NormalizeName(p.Name)
	}

	// Any player whose target key is shared falls back to its current key. Current keys are
	// unique, so repeating this settles once no target is shared.
	for {
		owners := make(map[string][]uuid.UUID, len(final))
		for id, key := range final {
			owners[key] = append(owners[key], id)
		}
		reverted := false
		for key, ids := range owners {
			if len(ids) < 2 {
				continue
			}
			for _, id := range ids {
				if final[id] != current[id] {
					log.Warn("player name collides after normalization, keeping old key",
						slog.String("player_id", id.String()),
						slog.String("name_key", key),
					)
					final[id] = current[id]
					reverted = true
				}
			}
		}
		if !reverted {
			break
		}
	}

	var changed []uuid.UUID
	for _, p := range players {
		if final[p.ID] != current[p.ID] {
			changed = append(changed, p.ID)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	// Two passes so a key moving from one player to another never trips the unique index
	// halfway through.
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range changed {
			if err := tx.Model(&models.Player{}).Where("id = ?", id).
				Update("name_key", "rebuild:"+id.String()).Error; err != nil {
				return err
			}
		}
		for _, id := range changed {
			if err := tx.Model(&models.Player{}).Where("id = ?", id).
				Update("name_key", final[id]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild player name keys: %w", err)
	}
	return len(changed), nil
}
