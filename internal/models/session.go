package models

import "time"

// Session is the durable record of a scheduled debate. The live phase and
// connection roster are owned by the engine, never persisted here; only the
// schedule, limits and (once the session ends) the final results land in the
// database.
type Session struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TopicID         uint       `gorm:"not null;index" json:"topic_id"`
	Topic           Topic      `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	ModeratorID     uint       `gorm:"not null;index" json:"moderator_id"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	DurationMinutes int        `gorm:"not null;default:60" json:"duration_minutes"`
	MaxParticipants int        `gorm:"not null;default:10" json:"max_participants"`
	MinPerSide      int        `gorm:"not null;default:1" json:"min_per_side"`
	Status          string     `gorm:"size:20;not null;default:'scheduled'" json:"status"`

	// Results, written once when the session ends.
	WinningSide      string     `gorm:"size:20" json:"winning_side,omitempty"`
	PropositionVotes int        `gorm:"not null;default:0" json:"proposition_votes"`
	OppositionVotes  int        `gorm:"not null;default:0" json:"opposition_votes"`
	TotalVotes       int        `gorm:"not null;default:0" json:"total_votes"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusEnded     = "ended"
)

const (
	MinDurationMinutes = 20
	MaxDurationMinutes = 180
)
