// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/arbiter"
	"github.com/higuchi-learn/freelen/internal/config"
)

// RunArbiter serves a bench match server on cfg.ArbiterPort until ctx is
// cancelled.
func RunArbiter(ctx context.Context, cfg *config.Config, players int, dict bool) error {
	gin.SetMode(gin.ReleaseMode)
	m := arbiter.NewMatch(players)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ArbiterPort),
		Handler:           arbiter.NewRouter(m, arbiter.Options{DictReplies: dict}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("arbiter: shutdown")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("path", arbiter.DevicePath).
		Int("players", players).
		Bool("dict", dict).
		Msg("arbiter: listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
