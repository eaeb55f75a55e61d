package model

import (
	"time"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
)

type Confession struct {
	ID        int64
	AuthorID  int64
	Content   string
	Status    enums.ConfessionStatus
	CreatedAt time.Time
	DecidedAt *time.Time
}
