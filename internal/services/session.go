package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kalashagnihotri/debate-backend/internal/engine"
	"github.com/kalashagnihotri/debate-backend/internal/models"

	"gorm.io/gorm"
)

// SessionService is the CRUD layer over durable sessions and the engine's
// session store boundary: it loads configuration at attach time and receives
// the transcript and tally when a session ends.
type SessionService struct {
	db *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

type CreateSessionInput struct {
	TopicID         uint
	ScheduledStart  *time.Time
	DurationMinutes int
	MaxParticipants int
	MinPerSide      int
}

func (s *SessionService) CreateSession(moderatorID uint, in CreateSessionInput) (*models.Session, error) {
	var moderator models.User
	if err := s.db.First(&moderator, moderatorID).Error; err != nil {
		return nil, errors.New("moderator not found")
	}
	if moderator.Role != models.UserRoleModerator {
		return nil, errors.New("only moderators can schedule sessions")
	}

	var topic models.Topic
	if err := s.db.First(&topic, in.TopicID).Error; err != nil {
		return nil, errors.New("topic not found")
	}

	if in.DurationMinutes == 0 {
		in.DurationMinutes = 60
	}
	if in.DurationMinutes < models.MinDurationMinutes || in.DurationMinutes > models.MaxDurationMinutes {
		return nil, fmt.Errorf("duration must be between %d and %d minutes",
			models.MinDurationMinutes, models.MaxDurationMinutes)
	}
	if in.MaxParticipants <= 0 {
		in.MaxParticipants = 10
	}
	if in.MinPerSide <= 0 {
		in.MinPerSide = 1
	}

	session := models.Session{
		TopicID:         in.TopicID,
		ModeratorID:     moderatorID,
		ScheduledStart:  in.ScheduledStart,
		DurationMinutes: in.DurationMinutes,
		MaxParticipants: in.MaxParticipants,
		MinPerSide:      in.MinPerSide,
		Status:          models.SessionStatusScheduled,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}

	s.db.Preload("Topic").First(&session, session.ID)
	return &session, nil
}

func (s *SessionService) GetSession(sessionID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.Preload("Topic").First(&session, sessionID).Error; err != nil {
		return nil, errors.New("session not found")
	}
	return &session, nil
}

func (s *SessionService) ListSessions(status string) ([]models.Session, error) {
	var sessions []models.Session
	q := s.db.Preload("Topic").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetTranscript returns the archived transcript of an ended session.
func (s *SessionService) GetTranscript(sessionID uint) ([]models.Message, error) {
	var messages []models.Message
	if err := s.db.Where("session_id = ?", sessionID).Order("seq ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// GetParticipationHistory returns the archived roster intervals of a session.
func (s *SessionService) GetParticipationHistory(sessionID uint) ([]models.Participation, error) {
	var parts []models.Participation
	if err := s.db.Where("session_id = ?", sessionID).Order("joined_at ASC").Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

// LoadSession implements the engine's session store read. It is called once
// when a session's first connection attaches, outside every engine lock.
func (s *SessionService) LoadSession(ctx context.Context, sessionID uint) (engine.SessionConfig, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).Preload("Topic").First(&session, sessionID).Error; err != nil {
		return engine.SessionConfig{}, engine.ErrSessionNotFound
	}
	if session.Status == models.SessionStatusEnded {
		return engine.SessionConfig{}, engine.ErrSessionEnded
	}

	return engine.SessionConfig{
		ID:              session.ID,
		TopicTitle:      session.Topic.Title,
		ModeratorID:     session.ModeratorID,
		ScheduledStart:  session.ScheduledStart,
		Duration:        time.Duration(session.DurationMinutes) * time.Minute,
		MaxParticipants: session.MaxParticipants,
		MinPerSide:      session.MinPerSide,
	}, nil
}

// PersistTranscript archives the in-memory transcript, moderation log and
// participation intervals when a session ends.
func (s *SessionService) PersistTranscript(ctx context.Context, sessionID uint, messages []engine.Message, actions []engine.ModerationAction, participations []engine.ParticipationRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range messages {
			row := models.Message{
				SessionID:  sessionID,
				Seq:        m.Seq,
				AuthorID:   m.AuthorID,
				AuthorName: m.AuthorName,
				Content:    m.Content,
				Type:       string(m.Type),
				Phase:      string(m.Phase),
				SentAt:     m.SentAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, a := range actions {
			row := models.ModerationAction{
				SessionID:   sessionID,
				Seq:         a.Seq,
				ModeratorID: a.ModeratorID,
				TargetID:    a.TargetID,
				Action:      a.Action,
				Reason:      a.Reason,
				Timestamp:   a.Timestamp,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, p := range participations {
			row := models.Participation{
				SessionID: sessionID,
				UserID:    p.UserID,
				Username:  p.Username,
				Role:      string(p.Role),
				Side:      string(p.Side),
				JoinedAt:  p.JoinedAt,
				LeftAt:    p.LeftAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PersistTally writes the final results and flips the durable session record
// to ended.
func (s *SessionService) PersistTally(ctx context.Context, sessionID uint, result engine.TallyResult) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range result.Votes {
			row := models.Vote{
				SessionID: sessionID,
				VoterID:   v.VoterID,
				Side:      string(v.Side),
				Timestamp: v.Timestamp,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Session{}).Where("id = ?", sessionID).Updates(map[string]interface{}{
			"status":            models.SessionStatusEnded,
			"winning_side":      result.WinningSide,
			"proposition_votes": result.Proposition,
			"opposition_votes":  result.Opposition,
			"total_votes":       result.Total,
			"ended_at":          &now,
		}).Error
	})
}
