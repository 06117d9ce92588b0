package models

import "time"

// Participation records that a user was attached to a session, so past
// rosters can be reconstructed after the live registry is gone.
type Participation struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	SessionID uint       `gorm:"not null;index" json:"session_id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Username  string     `gorm:"size:100;not null" json:"username"`
	Role      string     `gorm:"size:20;not null" json:"role"`
	Side      string     `gorm:"size:20" json:"side,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
}
