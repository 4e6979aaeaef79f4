package models

import (
	"time"
)

// User represents a campus identity known to the board. Rows are upserted the
// first time an authenticated NetID touches the API; there are no credentials
// here, the SSO in front of the service owns those.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NetID     string    `gorm:"unique;not null" json:"net_id"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
