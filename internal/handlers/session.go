package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kalashagnihotri/debate-backend/internal/engine"
	"github.com/kalashagnihotri/debate-backend/internal/models"
	"github.com/kalashagnihotri/debate-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService *services.SessionService
	eng            *engine.Engine
}

func NewSessionHandler(sessionService *services.SessionService, eng *engine.Engine) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, eng: eng}
}

type CreateSessionRequest struct {
	TopicID         uint       `json:"topic_id" binding:"required"`
	ScheduledStart  *time.Time `json:"scheduled_start"`
	DurationMinutes int        `json:"duration_minutes"`
	MaxParticipants int        `json:"max_participants"`
	MinPerSide      int        `json:"min_per_side"`
}

type PhaseControlRequest struct {
	Reason string `json:"reason"`
}

// SessionStatus is the synchronous read-only snapshot of a session: the
// durable record plus, while the session is live, the engine's phase,
// roster and tally.
type SessionStatus struct {
	Session        *models.Session      `json:"session"`
	Live           bool                 `json:"live"`
	Phase          engine.Phase         `json:"phase,omitempty"`
	Roster         *engine.Roster       `json:"roster,omitempty"`
	Tally          *engine.TallyPayload `json:"tally,omitempty"`
	PersistWarning string               `json:"persist_warning,omitempty"`
}

// CreateSession godoc
// @Summary      Schedule a debate session
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body CreateSessionRequest true "Session data"
// @Success      201 {object} models.Session
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.CreateSession(currentUserID(c), services.CreateSessionInput{
		TopicID:         req.TopicID,
		ScheduledStart:  req.ScheduledStart,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
		MinPerSide:      req.MinPerSide,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListSessions godoc
// @Summary      List debate sessions
// @Tags         sessions
// @Produce      json
// @Param        status query string false "Filter by status (scheduled|ended)"
// @Success      200 {array} models.Session
// @Router       /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListSessions(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary      Session status snapshot
// @Description  Durable record plus live phase, roster and tally when the
// @Description  session has an engine instance. Answers plain status
// @Description  requests without attaching a connection.
// @Tags         sessions
// @Produce      json
// @Param        id path int true "Session ID"
// @Success      200 {object} SessionStatus
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	status := SessionStatus{Session: session}
	if phase, live := h.eng.PhaseOf(id); live {
		status.Live = true
		status.Phase = phase
		if roster, ok := h.eng.RosterOf(id); ok {
			status.Roster = &roster
		}
		if tally, ok := h.eng.TallyOf(id); ok {
			status.Tally = &tally
		}
	}
	if warning, ok := h.eng.PersistWarning(id); ok {
		status.PersistWarning = warning
	}

	c.JSON(http.StatusOK, status)
}

// PhaseControl godoc
// @Summary      Apply a moderator lifecycle action
// @Description  Actions: start_joining, start_debate, start_voting, end_session.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Session ID"
// @Param        action path string true "Phase action"
// @Param        request body PhaseControlRequest false "Optional reason"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/phase/{action} [post]
func (h *SessionHandler) PhaseControl(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req PhaseControlRequest
	c.ShouldBindJSON(&req)

	action := c.Param("action")
	err := h.eng.PhaseControl(c.Request.Context(), id, currentUserID(c), action, req.Reason)
	if err != nil {
		c.JSON(engineStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: action + " applied"})
}

// GetResults godoc
// @Summary      Vote results
// @Description  Aggregate counts for everyone; per-voter detail only for the
// @Description  session moderator, and for others only once the session ended.
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Session ID"
// @Success      200 {object} SessionStatus
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/results [get]
func (h *SessionHandler) GetResults(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	isModerator := session.ModeratorID == currentUserID(c)

	if tally, live := h.eng.TallyOf(id); live {
		resp := gin.H{"live": true, "tally": tally}
		if isModerator {
			if votes, ok := h.eng.VotesOf(id); ok {
				resp["votes"] = votes
			}
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resp := gin.H{
		"live": false,
		"tally": engine.TallyPayload{
			Proposition: session.PropositionVotes,
			Opposition:  session.OppositionVotes,
		},
		"winning_side": session.WinningSide,
		"total_votes":  session.TotalVotes,
	}
	if warning, ok := h.eng.PersistWarning(id); ok {
		resp["persist_warning"] = warning
	}
	c.JSON(http.StatusOK, resp)
}

// GetTranscript godoc
// @Summary      Archived transcript of an ended session
// @Tags         sessions
// @Produce      json
// @Param        id path int true "Session ID"
// @Success      200 {array} models.Message
// @Router       /api/v1/sessions/{id}/transcript [get]
func (h *SessionHandler) GetTranscript(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	messages, err := h.sessionService.GetTranscript(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// GetParticipation godoc
// @Summary      Archived participation history of a session
// @Tags         sessions
// @Produce      json
// @Param        id path int true "Session ID"
// @Success      200 {array} models.Participation
// @Router       /api/v1/sessions/{id}/participants [get]
func (h *SessionHandler) GetParticipation(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	parts, err := h.sessionService.GetParticipationHistory(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, parts)
}

func (h *SessionHandler) sessionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return 0, false
	}
	return uint(id), true
}
