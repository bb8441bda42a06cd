package entity

import (
	"time"

	"github.com/google/uuid"
)

// Exchange is the persisted record of one completed turn: the user's
// query plus the raw newline-delimited event log streamed back for it.
// UserText and RawEventLog are immutable after the first write; only
// Marked may change afterwards.
type Exchange struct {
	Id          uuid.UUID
	SessionId   uuid.UUID
	UserText    string
	RawEventLog string
	Timestamp   time.Time
	Marked      bool
}
