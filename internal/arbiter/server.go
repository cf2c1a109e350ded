// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package arbiter

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/match"
)

// DevicePath is the endpoint the controllers talk to.
const DevicePath = "/device/input"

// Options tunes the HTTP surface.
type Options struct {
	// DictReplies answers with a JSON string holding a dict literal,
	// "{'error': 'player not ready'}", as the deployed server does.
	// Otherwise replies are plain JSON objects.
	DictReplies bool
}

// NewRouter builds the gin engine serving m.
func NewRouter(m *Match, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	r.POST(DevicePath, func(c *gin.Context) {
		var rep match.Report
		if err := c.ShouldBindJSON(&rep); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report"})
			return
		}
		if rep.DeviceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deviceId is required"})
			return
		}
		out := m.Report(rep)
		log.Info().
			Str("device", rep.DeviceID).
			Str("action", rep.Action).
			Str("state", string(rep.State)).
			Str("reply", out.Error).
			Msg("arbiter: report")
		writeOutcome(c, out, opts)
	})

	r.GET(DevicePath, func(c *gin.Context) {
		c.String(http.StatusOK, m.Status())
	})

	r.GET("/api/match", func(c *gin.Context) {
		c.JSON(http.StatusOK, m.Snapshot())
	})

	return r
}

func writeOutcome(c *gin.Context, out Outcome, opts Options) {
	if !opts.DictReplies {
		if out.Error == "" {
			c.JSON(http.StatusOK, gin.H{"matchId": out.MatchID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"error": out.Error})
		return
	}
	if out.Error == "" {
		c.JSON(http.StatusOK, fmt.Sprintf("{'matchId': '%s'}", out.MatchID))
		return
	}
	c.JSON(http.StatusOK, fmt.Sprintf("{'error': '%s'}", out.Error))
}
