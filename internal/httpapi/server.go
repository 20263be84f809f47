// Package httpapi wires the gin router, auth/logging middleware, and HTTP
// handlers for the process, session, port, file, health, and WebSocket
// surfaces (SPEC_FULL.md §6), grounded on the donor's src/api/router.go
// assembly idiom and on original_source/router.rs for the exact route
// table and middleware ordering.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devbox-run/agent/internal/config"
	"github.com/devbox-run/agent/internal/mcpadapter"
	"github.com/devbox-run/agent/internal/portmon"
	"github.com/devbox-run/agent/internal/process"
	"github.com/devbox-run/agent/internal/session"
)

// Server holds every engine the HTTP/WS surface fronts.
type Server struct {
	Config    *config.Config
	Processes *process.Engine
	Sessions  *session.Engine
	Ports     *portmon.Monitor
	StartTime time.Time

	upgrader websocket.Upgrader
	mcp      *mcpadapter.Adapter
}

// NewServer constructs the engines and wires them into a Server.
func NewServer(cfg *config.Config) *Server {
	ports := portmon.New()
	procEngine := process.NewEngine(process.NewRegistry(), ports)
	sessEngine := session.NewEngine(session.NewRegistry(), cfg.WorkspacePath)

	return &Server{
		Config:    cfg,
		Processes: procEngine,
		Sessions:  sessEngine,
		Ports:     ports,
		StartTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mcp: mcpadapter.New(procEngine, sessEngine),
	}
}
