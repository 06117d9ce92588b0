package engine

import (
	"errors"
	"testing"
)

// readTimeoutError mimics the net.Error a websocket read returns when the
// read deadline expires.
type readTimeoutError struct{}

func (readTimeoutError) Error() string   { return "read timeout" }
func (readTimeoutError) Timeout() bool   { return true }
func (readTimeoutError) Temporary() bool { return true }

func TestReadPumpCloseCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"deadline expiry closes as idle timeout", readTimeoutError{}, CloseIdleTimeout},
		{"plain transport failure closes normally", errors.New("connection reset"), CloseNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _ := newTestEngine(t, Options{})
			r := testRoom(t, eng)

			fc := newFakeConn()
			c := newClient(r, fc, Identity{ID: 1, Username: "alice"}, RoleViewer, "")
			if err := r.admit(c); err != nil {
				t.Fatalf("admit: %v", err)
			}

			// The error is buffered before the pump starts, so the pump
			// reads it, detaches and returns synchronously.
			fc.errCh <- tt.err
			c.readPump()

			if c.closeCode != tt.want {
				t.Errorf("close code = %d, want %d", c.closeCode, tt.want)
			}
			r.mu.Lock()
			_, attached := r.clients[1]
			r.mu.Unlock()
			if attached {
				t.Error("connection still registered after read pump exit")
			}
		})
	}
}
