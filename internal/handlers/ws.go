package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/kalashagnihotri/debate-backend/internal/engine"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	eng *engine.Engine
}

func NewWSHandler(eng *engine.Engine) *WSHandler {
	return &WSHandler{eng: eng}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket godoc
// @Summary      Attach a live connection to a debate session
// @Description  Upgrades to WebSocket and runs the attach protocol. The
// @Description  credential rides the token query parameter (browsers cannot
// @Description  set headers on ws upgrades); role is participant or viewer,
// @Description  side is required for participants.
// @Tags         websocket
// @Param        id path int true "Session ID"
// @Param        token query string true "JWT credential"
// @Param        role query string true "participant or viewer"
// @Param        side query string false "proposition or opposition"
// @Router       /ws/sessions/{id} [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	token := c.Query("token")
	role := engine.Role(c.DefaultQuery("role", string(engine.RoleViewer)))
	side := engine.Side(c.Query("side"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	err = h.eng.Attach(c.Request.Context(), token, uint(sessionID), role, side, conn)
	if err != nil {
		// The attach was rejected before any registration happened;
		// tell the peer why and close.
		msg := websocket.FormatCloseMessage(attachCloseCode(err), err.Error())
		conn.WriteMessage(websocket.CloseMessage, msg)
		conn.Close()
		return
	}
	// On success the engine owns the connection until detach.
}

func attachCloseCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrSessionEnded):
		return engine.CloseSessionEnded
	case errors.Is(err, engine.ErrRemovedFromSession):
		return engine.CloseRemoved
	default:
		return engine.CloseProtocolError
	}
}
