// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package status serves the controller's live status over HTTP and websocket.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/imu"
)

// Snapshot is the device status after one tick.
type Snapshot struct {
	DeviceID string     `json:"deviceId"`
	Role     string     `json:"role"`
	State    string     `json:"state"`
	Action   string     `json:"action"`
	Sample   imu.Sample `json:"sample"`
	Online   bool       `json:"online"`
	Pending  bool       `json:"pending"`
	Server   string     `json:"server,omitempty"` // last server reply or status text
	Tick     uint64     `json:"tick"`
	Time     time.Time  `json:"time"`
}

// Text is the one-line form served at GET /.
func (s Snapshot) Text() string {
	line := fmt.Sprintf("%s %s %s", s.Role, s.State, s.Action)
	if s.Server != "" {
		line += " | " + s.Server
	}
	return line
}

// Hub holds the latest snapshot and fans updates out to websocket clients.
type Hub struct {
	mu   sync.RWMutex
	snap Snapshot
	have bool
	subs map[chan Snapshot]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Snapshot]struct{})}
}

// Publish stores s and offers it to every subscriber. Slow subscribers miss
// updates rather than block the caller.
func (h *Hub) Publish(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = s
	h.have = true
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Latest returns the last published snapshot.
func (h *Hub) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap, h.have
}

func (h *Hub) subscribe() chan Snapshot {
	ch := make(chan Snapshot, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Snapshot) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // bench tool on a local network
	},
}

// Handler routes GET /, GET /api/status and GET /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", h.handleAPI)
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/", h.handleText)
	return mux
}

func (h *Hub) handleText(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s, ok := h.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, s.Text())
}

func (h *Hub) handleAPI(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s); err != nil {
		log.Debug().Err(err).Msg("status: json encode error")
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("status: websocket upgrade error")
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// reader detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if s, ok := h.Latest(); ok {
		if err := writeSnapshot(conn, s); err != nil {
			return
		}
	}
	for {
		select {
		case <-closed:
			return
		case s := <-ch:
			if err := writeSnapshot(conn, s); err != nil {
				log.Debug().Err(err).Msg("status: websocket write error")
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, s Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return conn.WriteJSON(s)
}

// Serve runs the status server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h *Hub) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("status: server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
