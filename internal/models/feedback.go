package models

import (
	"time"
)

// MaxFeedbackLen bounds feedback text length.
const MaxFeedbackLen = 2000

// Feedback is a free-text bug report. Write-only: there is no read path.
type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NetID     string    `gorm:"not null" json:"net_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
