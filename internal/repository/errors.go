package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrRevisionConflict is returned when a row changed between read and write.
var ErrRevisionConflict = errors.New("revision conflict")

// updateWithRevision applies updates only when the stored revision still matches and bumps it.
func updateWithRevision(tx *gorm.DB, model interface{}, id, revision uint, updates map[string]interface{}) error {
	updates["revision"] = revision + 1

	result := tx.Model(model).
		Where("id = ?", id).
		Where("revision = ?", revision).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRevisionConflict
	}

	return nil
}
