package scribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bosley/chatrttm/pairs"
	"github.com/bosley/chatrttm/rttm"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	shutdownTimeout = 5 * time.Second
)

type wsConnection struct {
	conn      *websocket.Conn
	id        uuid.UUID
	send      chan []byte
	scribe    *Scribe
	closeOnce sync.Once
}

// Handler returns the HTTP routes.
func (s *Scribe) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/api/transcripts", s.handleListTranscripts).Methods("GET")
	router.HandleFunc("/api/transcripts/{id:.+}", s.handleGetTranscript).Methods("GET")
	router.HandleFunc("/api/rttm/{id:.+}", s.handleGetRTTM).Methods("GET")
	router.HandleFunc("/api/segments/{id:.+}", s.handleGetSegments).Methods("GET")
	router.HandleFunc("/api/pairs", s.handleListPairs).Methods("GET")
	router.HandleFunc("/ws", s.handleWebSocket)

	return router
}

func (s *Scribe) serveHTTP(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.config.CertFile != "" && s.config.KeyFile != "" {
			err = s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("HTTP server listening", "address", s.config.HTTPAddr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// handleListTranscripts returns a summary of every stored transcript
func (s *Scribe) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.summaries())
}

func (s *Scribe) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	t, ok := s.transcript(id)
	if !ok {
		http.Error(w, "Transcript not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t)
}

// handleGetRTTM serves the exported RTTM file of a stored transcript
func (s *Scribe) handleGetRTTM(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	f, ok := s.openRTTM(w, id)
	if !ok {
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(w, f); err != nil {
		slog.Error("Failed to write rttm response", "error", err, "transcript", id)
	}
}

// handleGetSegments reads the exported RTTM file back as JSON segments
func (s *Scribe) handleGetSegments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	f, ok := s.openRTTM(w, id)
	if !ok {
		return
	}
	defer f.Close()

	segs, err := rttm.Parse(f)
	if err != nil {
		slog.Error("Failed to parse rttm file", "error", err, "transcript", id)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if segs == nil {
		segs = []rttm.Segment{}
	}
	writeJSON(w, segs)
}

// openRTTM opens the exported file of a stored transcript, writing a 404
// when either is missing.
func (s *Scribe) openRTTM(w http.ResponseWriter, id string) (*os.File, bool) {
	if _, ok := s.transcript(id); !ok {
		http.Error(w, "Transcript not found", http.StatusNotFound)
		return nil, false
	}
	f, err := os.Open(rttm.PathFor(s.config.RTTMDir, id))
	if err != nil {
		slog.Warn("RTTM file missing for stored transcript", "transcript", id, "error", err)
		http.Error(w, "RTTM file not found", http.StatusNotFound)
		return nil, false
	}
	return f, true
}

func (s *Scribe) handleListPairs(w http.ResponseWriter, r *http.Request) {
	if s.config.AudioDir == "" {
		http.Error(w, "No audio directory configured", http.StatusNotFound)
		return
	}

	found, err := pairs.WavRTTM(s.config.AudioDir, s.config.RTTMDir)
	if err != nil {
		slog.Error("Failed to list pairs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if found == nil {
		found = []pairs.Pair{}
	}
	writeJSON(w, found)
}

func (s *Scribe) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade connection to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	wsConn := &wsConnection{
		conn:   conn,
		id:     uuid.New(),
		send:   make(chan []byte, 256),
		scribe: s,
	}

	s.registerSubscriber(wsConn)

	// Start the connection handlers
	go wsConn.writePump()
	go wsConn.readPump()
}

func (s *Scribe) registerSubscriber(wsConn *wsConnection) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers[wsConn.id] = wsConn
	slog.Debug("Subscriber connected", "subscriber", wsConn.id)
}

func (s *Scribe) unregisterSubscriber(wsConn *wsConnection) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.subscribers[wsConn.id]; !ok {
		return
	}
	delete(s.subscribers, wsConn.id)
	wsConn.closeSend()
}

func (s *Scribe) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, c := range s.subscribers {
		delete(s.subscribers, id)
		c.closeSend()
	}
}

func (s *Scribe) subscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subscribers)
}

func (c *wsConnection) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// writePump forwards queued events to the socket and keeps it alive with
// pings. It owns all writes to the connection.
func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and unregisters the subscriber once
// the connection drops.
func (c *wsConnection) readPump() {
	defer func() {
		c.scribe.unregisterSubscriber(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			break
		}
	}
}
