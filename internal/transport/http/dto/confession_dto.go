package dto

import "time"

type ConfessionResponse struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

type ConfessionQueueResponse struct {
	Confession ConfessionResponse `json:"confession"`
	Pending    int                `json:"pending"`
}

type ConfessionListResponse struct {
	Confessions []ConfessionResponse `json:"confessions"`
}
