// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package netlink watches the controller's network association.
package netlink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrJoinFailed = errors.New("network connection failed")

// Link reports whether the device currently has a usable network.
type Link interface {
	Up() bool
}

// Reconnector is a Link that can actively try to re-associate.
type Reconnector interface {
	Link
	Reconnect(ctx context.Context) error
}

// ReconnectTimeout bounds one reconnection attempt.
const ReconnectTimeout = 5 * time.Second

// InterfaceLink is up when the named interface is up and has an address.
// An empty Name accepts any non-loopback interface.
type InterfaceLink struct {
	Name string
	// ReconnectCmd, when set, is run to re-associate, e.g.
	// ["wpa_cli", "-i", "wlan0", "reconnect"].
	ReconnectCmd []string
}

// Reconnect runs ReconnectCmd. Without one it does nothing and the OS
// network supervisor is left to re-associate.
func (l InterfaceLink) Reconnect(ctx context.Context) error {
	if len(l.ReconnectCmd) == 0 {
		return nil
	}
	out, err := exec.CommandContext(ctx, l.ReconnectCmd[0], l.ReconnectCmd[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("reconnect %s: %w (%s)", l.ReconnectCmd[0], err, bytes.TrimSpace(out))
	}
	return nil
}

func (l InterfaceLink) Up() bool {
	if l.Name != "" {
		ifi, err := net.InterfaceByName(l.Name)
		if err != nil {
			return false
		}
		return usable(*ifi)
	}
	ifs, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, ifi := range ifs {
		if ifi.Flags&net.FlagLoopback == 0 && usable(ifi) {
			return true
		}
	}
	return false
}

func usable(ifi net.Interface) bool {
	if ifi.Flags&net.FlagUp == 0 {
		return false
	}
	addrs, err := ifi.Addrs()
	return err == nil && len(addrs) > 0
}

// StaticLink is a Link whose state is set by hand.
type StaticLink struct {
	up atomic.Bool
}

func NewStaticLink(up bool) *StaticLink {
	l := &StaticLink{}
	l.up.Store(up)
	return l
}

func (l *StaticLink) Set(up bool) { l.up.Store(up) }
func (l *StaticLink) Up() bool    { return l.up.Load() }

// Join polls link up to attempts times, interval apart, and fails with
// ErrJoinFailed if it never comes up.
func Join(ctx context.Context, link Link, attempts int, interval time.Duration) error {
	for i := 0; i < attempts; i++ {
		if link.Up() {
			log.Info().Int("attempt", i+1).Msg("netlink: connected")
			return nil
		}
		log.Info().Int("attempt", i+1).Int("of", attempts).Msg("netlink: waiting for connection...")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrJoinFailed, ctx.Err())
		case <-time.After(interval):
		}
	}
	if link.Up() {
		return nil
	}
	return fmt.Errorf("%w after %d attempts", ErrJoinFailed, attempts)
}

// Monitor tracks the link during the main loop. While the link is down a
// reconnection is attempted, and the link re-probed, at most once every
// reconnect interval.
type Monitor struct {
	link      Link
	reconnect time.Duration
	now       func() time.Time

	up        bool
	lastProbe time.Time
}

// NewMonitor returns a monitor that assumes the link is up, as after Join.
func NewMonitor(link Link, reconnect time.Duration) *Monitor {
	return &Monitor{link: link, reconnect: reconnect, now: time.Now, up: true}
}

// Online reports the link state for this tick.
func (m *Monitor) Online() bool {
	now := m.now()
	if m.up {
		if !m.link.Up() {
			m.up = false
			m.lastProbe = now
			log.Warn().Msg("netlink: connection lost, reports dropped until it returns")
		}
		return m.up
	}
	if now.Sub(m.lastProbe) < m.reconnect {
		return false
	}
	m.lastProbe = now
	if r, ok := m.link.(Reconnector); ok {
		ctx, cancel := context.WithTimeout(context.Background(), ReconnectTimeout)
		err := r.Reconnect(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("netlink: reconnect attempt failed")
		}
	}
	if m.link.Up() {
		m.up = true
		log.Info().Msg("netlink: connection restored")
	}
	return m.up
}
