package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wificfg/internal/logging"
	"github.com/muurk/wificfg/internal/scancache"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// ScanCommand, sent by a feed client as a text message, starts a scan.
const ScanCommand = "scan"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The configuration page is served from the device itself; CLI clients
	// send no Origin at all.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket streams the scan status: the current snapshot right away,
// then one message per scan completion.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
	logging.LogConnection(remoteAddr, "websocket_opened")

	updates, cancel := s.cache.Subscribe()
	initial := s.cache.Snapshot()

	readDone := make(chan struct{})
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.readPump(conn, remoteAddr, readDone)
	}()
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.writePump(conn, remoteAddr, initial, updates, readDone)
	}()
}

// readPump handles scan commands and pongs. There is at most one reader per
// connection.
func (s *Server) readPump(conn *websocket.Conn, remoteAddr string, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("Websocket read error",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		if kind != websocket.TextMessage || strings.TrimSpace(string(msg)) != ScanCommand {
			continue
		}
		if !s.loop.Post(func() { s.cache.StartScan() }) {
			logging.Warn("Event loop rejected scan request", zap.String("remote_addr", remoteAddr))
		}
	}
}

// writePump is the only writer to conn.
func (s *Server) writePump(conn *websocket.Conn, remoteAddr string, initial scancache.Snapshot, updates <-chan scancache.Snapshot, readDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	if err := writeSnapshot(conn, initial); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				logging.Debug("Websocket write failed",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap scancache.Snapshot) error {
	data, err := snap.MarshalJSON()
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
