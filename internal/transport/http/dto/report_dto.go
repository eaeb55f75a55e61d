package dto

import "time"

type ReportResponse struct {
	ID         int64     `json:"id"`
	ReporterID int64     `json:"reporter_id"`
	TargetID   int64     `json:"target_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
}

type ReportResolveRequest struct {
	Status string `json:"status"`
}
