package model

import (
	"time"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
)

// Match is a realized mutual relationship. UserA < UserB always; the
// canonical ordering backs the uniqueness constraint on active pairs.
type Match struct {
	ID        int64
	UserA     int64
	UserB     int64
	Status    enums.MatchStatus
	CreatedAt time.Time
}

// Other returns the counterpart of userID in the match.
func (m Match) Other(userID int64) int64 {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}
