// Package mcpadapter exposes process and session operations as MCP tools
// over the official SDK, grounded on the donor's src/mcp package (server.go
// for the server/tool-registration shape, process.go for the
// LogToolCall-wrapped tool pattern) — generalized from the donor's
// handler.ProcessHandler/NetworkHandler to this module's process.Engine and
// session.Engine (SPEC_FULL.md's supplemented-features section).
package mcpadapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/devbox-run/agent/internal/process"
	"github.com/devbox-run/agent/internal/session"
)

// Adapter registers process/session tools on an MCP server and serves them
// over a streamable HTTP handler.
type Adapter struct {
	server     *mcp.Server
	httpServer http.Handler
	processes  *process.Engine
	sessions   *session.Engine
}

// New constructs an Adapter wired to procEngine/sessEngine and registers
// every tool.
func New(procEngine *process.Engine, sessEngine *session.Engine) *Adapter {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "devbox-agent",
		Version: "1.0.0",
	}, nil)

	a := &Adapter{
		server:    mcpServer,
		processes: procEngine,
		sessions:  sessEngine,
	}
	a.registerProcessTools()
	a.registerSessionTools()

	a.httpServer = mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	return a
}

// ServeHTTP fronts the adapter's MCP handler so httpapi can mount it behind
// a single gin route without depending on the mcp package directly.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.httpServer.ServeHTTP(w, r)
}

// logToolCall wraps a tool handler with start/duration/error logging,
// matching the donor's LogToolCall generic helper.
func logToolCall[T any, R any](name string, fn func(ctx context.Context, req *mcp.CallToolRequest, args T) (*mcp.CallToolResult, R, error)) func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, R, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args T) (*mcp.CallToolResult, R, error) {
		start := time.Now()
		result, out, err := fn(ctx, req, args)
		duration := time.Since(start)
		if err != nil {
			logrus.WithFields(logrus.Fields{"tool": name, "duration": duration, "error": err}).Warn("mcp tool call failed")
			if err.Error() == "" {
				err = fmt.Errorf("tool %s failed with unknown error", name)
			}
		} else {
			logrus.WithFields(logrus.Fields{"tool": name, "duration": duration}).Debug("mcp tool call completed")
		}
		return result, out, err
	}
}
