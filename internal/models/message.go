package models

import "time"

// Message is an archived transcript entry, handed over by the engine when a
// session ends.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;uniqueIndex:idx_message_seq" json:"session_id"`
	Seq        uint64    `gorm:"not null;uniqueIndex:idx_message_seq" json:"seq"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	AuthorName string    `gorm:"size:100;not null" json:"author_name"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Type       string    `gorm:"size:20;not null" json:"type"`
	Phase      string    `gorm:"size:20;not null" json:"phase"`
	SentAt     time.Time `json:"sent_at"`
}

const (
	MessageTypeArgument = "argument"
	MessageTypeRebuttal = "rebuttal"
	MessageTypeQuestion = "question"
	MessageTypeClosing  = "closing"
)
