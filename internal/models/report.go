package models

import "time"

// Report is a moderation record for a drop, stored in PostgreSQL.
// Reports are append-only; nothing in the feed engine reads them back.
type Report struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PostID     string    `json:"post_id" gorm:"index"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
