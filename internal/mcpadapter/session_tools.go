package mcpadapter

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devbox-run/agent/internal/session"
)

type listSessionsInput struct{}

type listSessionsOutput struct {
	Sessions []session.View `json:"sessions"`
}

type sessionCreateInput struct {
	Shell      *string           `json:"shell,omitempty" jsonschema:"shell binary to run, default /bin/bash"`
	WorkingDir *string           `json:"workingDir,omitempty" jsonschema:"initial working directory"`
	Env        map[string]string `json:"env,omitempty" jsonschema:"initial environment variables"`
}

type sessionIdentifierInput struct {
	SessionID string `json:"sessionId" jsonschema:"the session ID returned by sessionCreate"`
}

type sessionExecInput struct {
	SessionID string `json:"sessionId" jsonschema:"the session ID returned by sessionCreate"`
	Command   string `json:"command" jsonschema:"the command line to write to the session's shell"`
}

type sessionExecOutput struct {
	Queued bool `json:"queued"`
}

func (a *Adapter) registerSessionTools() {
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "sessionList",
		Description: "List all interactive shell sessions",
	}, logToolCall("sessionList", func(ctx context.Context, req *mcp.CallToolRequest, in listSessionsInput) (*mcp.CallToolResult, listSessionsOutput, error) {
		return nil, listSessionsOutput{Sessions: a.sessions.List()}, nil
	}))

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "sessionCreate",
		Description: "Start a new interactive shell session",
	}, logToolCall("sessionCreate", func(ctx context.Context, req *mcp.CallToolRequest, in sessionCreateInput) (*mcp.CallToolResult, session.View, error) {
		shell := ""
		if in.Shell != nil {
			shell = *in.Shell
		}
		workingDir := ""
		if in.WorkingDir != nil {
			workingDir = *in.WorkingDir
		}
		rec, err := a.sessions.Create(session.CreateRequest{
			Shell:      shell,
			WorkingDir: workingDir,
			Env:        in.Env,
		})
		if err != nil {
			return nil, session.View{}, fmt.Errorf("failed to create session: %w", err)
		}
		return nil, rec.View(), nil
	}))

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "sessionExec",
		Description: "Run a command in an existing session's shell",
	}, logToolCall("sessionExec", func(ctx context.Context, req *mcp.CallToolRequest, in sessionExecInput) (*mcp.CallToolResult, sessionExecOutput, error) {
		if _, err := a.sessions.Exec(in.SessionID, in.Command); err != nil {
			return nil, sessionExecOutput{}, fmt.Errorf("failed to run command in session: %w", err)
		}
		return nil, sessionExecOutput{Queued: true}, nil
	}))

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "sessionTerminate",
		Description: "Terminate an interactive shell session",
	}, logToolCall("sessionTerminate", func(ctx context.Context, req *mcp.CallToolRequest, in sessionIdentifierInput) (*mcp.CallToolResult, sessionExecOutput, error) {
		if err := a.sessions.Terminate(in.SessionID); err != nil {
			return nil, sessionExecOutput{}, fmt.Errorf("failed to terminate session: %w", err)
		}
		return nil, sessionExecOutput{Queued: true}, nil
	}))
}
