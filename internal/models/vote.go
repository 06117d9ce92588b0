package models

import "time"

// Vote is the archived record of a viewer's final vote. At most one row per
// (session, voter); the engine already collapses replacements before handing
// the ledger over.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;uniqueIndex:idx_vote_unique" json:"session_id"`
	VoterID   uint      `gorm:"not null;uniqueIndex:idx_vote_unique" json:"voter_id"`
	Side      string    `gorm:"size:20;not null" json:"side"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SideProposition = "proposition"
	SideOpposition  = "opposition"
)
