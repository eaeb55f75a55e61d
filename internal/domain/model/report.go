package model

import (
	"time"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
)

type Report struct {
	ID         int64
	ReporterID int64
	TargetID   int64
	Reason     string
	Status     enums.ReportStatus
	CreatedAt  time.Time
}
