package model

import (
	"time"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
)

// PairActionRecord is one directional row of the pair history ledger.
// The (ActorID, TargetID) pair is unique; updates supersede in place.
type PairActionRecord struct {
	ActorID   int64
	TargetID  int64
	Action    enums.PairAction
	CreatedAt time.Time
	UpdatedAt time.Time
}
