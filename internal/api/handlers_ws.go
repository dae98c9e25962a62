// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package api

import (
	"net/http"

	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/websocket"
)

// ServeWS upgrades the connection and attaches the client to the live
// reading hub. The route is gated by RequireLive.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "live streaming is not available", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()

	logging.Debug().
		Uint64("client_id", client.ID()).
		Str("remote", conn.RemoteAddr().String()).
		Msg("websocket client connected")
}
