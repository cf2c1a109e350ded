// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package arbiter is a bench match server speaking the controller protocol.
// It pairs players by readiness and tells them when the fight starts.
package arbiter

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/higuchi-learn/freelen/internal/match"
)

// Sentinel texts returned in the "error" field.
const (
	MsgPlayerNotReady   = "player not ready"
	MsgOpponentNotReady = "opponent not ready"
	MsgChangeFighting   = "change fighting"
)

const finishAction = "finish"

// Player is the arbiter's view of one device.
type Player struct {
	DeviceID string      `json:"deviceId"`
	State    match.State `json:"state"`
	Action   string      `json:"action"`
	LastSeen time.Time   `json:"lastSeen"`
}

// Outcome is the arbiter's answer to one report. Error is empty when the
// report was simply accepted.
type Outcome struct {
	Error   string
	MatchID string
}

// Snapshot is a read-only copy of the match.
type Snapshot struct {
	MatchID    string   `json:"matchId"`
	Fighting   bool     `json:"fighting"`
	LastAction string   `json:"lastAction"`
	Players    []Player `json:"players"`
}

// Match arbitrates one two-player match at a time.
type Match struct {
	mu       sync.Mutex
	size     int
	id       string
	fighting bool
	players  map[string]*Player
	roster   map[string]bool // devices admitted to the current fight
	last     string
	now      func() time.Time
}

// NewMatch returns an arbiter for matches of size players (2 when <= 0).
func NewMatch(size int) *Match {
	if size <= 0 {
		size = 2
	}
	return &Match{
		size:    size,
		id:      uuid.NewString(),
		players: make(map[string]*Player),
		roster:  make(map[string]bool),
		now:     time.Now,
	}
}

// Report applies one device report.
func (m *Match) Report(r match.Report) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.player(r.DeviceID)
	p.Action = r.Action
	p.LastSeen = m.now()

	// Only a fighter can end the fight. A device still holding the finish
	// label afterwards goes through the normal handshake.
	if r.Action == finishAction && m.fighting && m.roster[p.DeviceID] {
		m.reset()
		m.last = r.Action
		return m.out(MsgPlayerNotReady)
	}

	switch r.State {
	case "":
		// handshake-less device: always accepted
		m.last = r.Action
		return m.out("")

	case match.NotReady:
		p.State = match.NotReady
		return m.out(MsgPlayerNotReady)

	case match.Ready:
		p.State = match.Ready
		if m.fighting {
			if m.roster[p.DeviceID] {
				p.State = match.Fighting
				return m.out(MsgChangeFighting)
			}
			return m.out(MsgOpponentNotReady)
		}
		if m.readyCount() >= m.size {
			m.start()
			return m.out(MsgChangeFighting)
		}
		return m.out(MsgOpponentNotReady)

	case match.Fighting:
		if !m.fighting || !m.roster[p.DeviceID] {
			p.State = match.NotReady
			return m.out(MsgOpponentNotReady)
		}
		p.State = match.Fighting
		m.last = r.Action
		return m.out("")
	}
	return m.out(MsgPlayerNotReady)
}

// Status returns the text served to polling devices: the last action seen.
func (m *Match) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{MatchID: m.id, Fighting: m.fighting, LastAction: m.last}
	for _, p := range m.players {
		s.Players = append(s.Players, *p)
	}
	sort.Slice(s.Players, func(i, j int) bool { return s.Players[i].DeviceID < s.Players[j].DeviceID })
	return s
}

func (m *Match) player(id string) *Player {
	p, ok := m.players[id]
	if !ok {
		p = &Player{DeviceID: id, State: match.NotReady}
		m.players[id] = p
	}
	return p
}

func (m *Match) readyCount() int {
	n := 0
	for _, p := range m.players {
		if p.State == match.Ready {
			n++
		}
	}
	return n
}

func (m *Match) start() {
	m.fighting = true
	m.id = uuid.NewString()
	m.roster = make(map[string]bool)
	for id, p := range m.players {
		if p.State == match.Ready {
			m.roster[id] = true
		}
	}
}

func (m *Match) reset() {
	m.fighting = false
	m.roster = make(map[string]bool)
	for _, p := range m.players {
		p.State = match.NotReady
	}
	m.id = uuid.NewString()
}

func (m *Match) out(msg string) Outcome {
	return Outcome{Error: msg, MatchID: m.id}
}
