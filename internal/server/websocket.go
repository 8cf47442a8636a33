package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/IM-Lab-france/fishfeeder/internal/logging"
)

const (
	// writeWait bounds a single status frame write.
	writeWait = 10 * time.Second

	// pushInterval paces status frames to the page.
	pushInterval = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page is served from the device itself; there is no cross-origin
	// story to defend here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents streams status documents to the configuration page so it
// updates live instead of polling /status.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	logging.Debug("Status stream opened", zap.String("remote_addr", r.RemoteAddr))

	// Read pump: discard client frames, notice the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
		logging.Debug("Status stream closed", zap.String("remote_addr", r.RemoteAddr))
	}()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.dev.Status()); err != nil {
			return
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
