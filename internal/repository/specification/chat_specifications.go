package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// MarkedOnly keeps exchanges the user pinned as always-included context.
type MarkedOnly struct{}

func (s MarkedOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_marked = ?", true)
}
