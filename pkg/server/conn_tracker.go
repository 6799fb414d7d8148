package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type wsConn interface {
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// connTracker keeps the live client connections so shutdown can close them.
type connTracker struct {
	mu    sync.Mutex
	conns map[wsConn]struct{}
}

func newConnTracker() *connTracker {
	return &connTracker{conns: map[wsConn]struct{}{}}
}

func (ct *connTracker) Add(conn wsConn) {
	if ct == nil || conn == nil {
		return
	}
	ct.mu.Lock()
	ct.conns[conn] = struct{}{}
	ct.mu.Unlock()
}

func (ct *connTracker) Remove(conn wsConn) {
	if ct == nil || conn == nil {
		return
	}
	ct.mu.Lock()
	delete(ct.conns, conn)
	ct.mu.Unlock()
	_ = conn.Close()
}

func (ct *connTracker) Count() int {
	if ct == nil {
		return 0
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.conns)
}

// CloseAll tells every client the server is going away and closes the
// connections.
func (ct *connTracker) CloseAll() {
	if ct == nil {
		return
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range ct.conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		delete(ct.conns, conn)
	}
}
