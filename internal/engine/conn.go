package engine

import "time"

// Conn is the subset of *websocket.Conn the engine relies on. Tests swap in
// an in-memory implementation; production code passes the upgraded
// gorilla connection straight through.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}
