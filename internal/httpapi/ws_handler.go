package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/devbox-run/agent/internal/wsmux"
)

// handleWebSocket upgrades to a full-duplex socket and hands it to wsmux,
// which multiplexes subscribe/unsubscribe/list over process and session
// log streams (SPEC_FULL.md §4.3).
// @Summary Subscribe to log streams over WebSocket
// @Tags logs
// @Router /ws [get]
func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer func() { _ = ws.Close() }()

	conn := wsmux.NewConn(ws, s.lookupLogTarget)
	conn.Serve()
}

// lookupLogTarget composes the process and session registries into a
// single wsmux.Lookup.
func (s *Server) lookupLogTarget(kind, targetID string) (wsmux.LogTarget, bool) {
	switch kind {
	case "process":
		rec, ok := s.Processes.Registry.Get(targetID)
		if !ok {
			return nil, false
		}
		return rec, true
	case "session":
		rec, ok := s.Sessions.Registry.Get(targetID)
		if !ok {
			return nil, false
		}
		return rec, true
	default:
		return nil, false
	}
}
