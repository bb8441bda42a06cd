package model

import (
	"time"

	"github.com/google/uuid"
)

// Exchange rows are append-only: user_text and raw_event_log never
// change after insert, only is_marked does. No soft delete; exchanges
// disappear only when their session is hard-deleted.
type Exchange struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserText    string    `gorm:"type:text;not null"`
	RawEventLog string    `gorm:"type:text;not null"` // newline-delimited JSON, one event per line
	Timestamp   time.Time `gorm:"not null;index"`
	IsMarked    bool      `gorm:"default:false"`
}

func (Exchange) TableName() string {
	return "chat_exchanges"
}
