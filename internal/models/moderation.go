package models

import "time"

// ModerationAction is the archived audit entry for a moderator intervention.
type ModerationAction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   uint      `gorm:"not null;index" json:"session_id"`
	Seq         uint64    `gorm:"not null" json:"seq"`
	ModeratorID uint      `gorm:"not null" json:"moderator_id"`
	TargetID    uint      `gorm:"not null" json:"target_id"`
	Action      string    `gorm:"size:20;not null" json:"action"`
	Reason      string    `gorm:"type:text" json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

const (
	ModerationMute   = "mute"
	ModerationUnmute = "unmute"
	ModerationWarn   = "warn"
	ModerationRemove = "remove"
)
