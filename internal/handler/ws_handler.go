/*
Package handler provides the HTTP surface of the room server.

This file contains the WebSocket handler: it rate-limits by client IP,
upgrades the connection and runs the session pumps. Login happens in-band
after the upgrade, so no request parameters are required here.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"roomsync/internal/app/room"
	"roomsync/internal/pkg/limiter"
	"roomsync/internal/pkg/logx"
)

// HandleWebSocket returns the handler that accepts room connections.
func HandleWebSocket(rm *room.Room, upgrader websocket.Upgrader, joinLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !joinLimiter.Allow(r.RemoteAddr) {
			logx.Warn("WebSocket connection rejected: rate limit exceeded", "remote_addr", r.RemoteAddr)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote an HTTP error to the client.
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		sess := room.NewSession(rm, conn)

		go sess.WritePump()
		sess.ReadPump()
	}
}
