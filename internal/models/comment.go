package models

import (
	"time"
)

// MaxCommentLen bounds comment text length.
const MaxCommentLen = 200

// Comment represents a remark attached to a card. Comments are immutable
// after creation and never outlive their card.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	CardID   uint      `gorm:"not null;index" json:"card_id"`
	NetID    string    `gorm:"not null" json:"net_id"`
	Text     string    `gorm:"not null" json:"text"`
	PostedAt time.Time `gorm:"autoCreateTime" json:"posted_at"`
}
