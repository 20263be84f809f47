package mcpadapter

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devbox-run/agent/internal/process"
)

type listProcessesInput struct{}

type listProcessesOutput struct {
	Processes []process.View `json:"processes"`
}

type processExecuteInput struct {
	Command      string            `json:"command" jsonschema:"the command to execute"`
	Args         []string          `json:"args,omitempty" jsonschema:"argv for the command, used instead of shell parsing when set"`
	WorkingDir   *string           `json:"workingDir,omitempty" jsonschema:"working directory for the command"`
	Env          map[string]string `json:"env,omitempty" jsonschema:"environment variables to set"`
	Timeout      *int              `json:"timeout,omitempty" jsonschema:"timeout in seconds; 0 means no timeout"`
	WaitForPorts []int             `json:"waitForPorts,omitempty" jsonschema:"ports to watch for once the process starts; the call returns without waiting for them"`
}

type processExecuteOutput struct {
	ProcessID string `json:"processId"`
	PID       int    `json:"pid"`
	Status    string `json:"status"`
}

type processIdentifierInput struct {
	ProcessID string `json:"processId" jsonschema:"the process ID returned by processExecute"`
}

type processLogsOutput struct {
	Logs string `json:"logs"`
}

type processStatusOutput struct {
	Status string `json:"status"`
}

func (a *Adapter) registerProcessTools() {
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "processList",
		Description: "List all tracked processes",
	}, logToolCall("processList", func(ctx context.Context, req *mcp.CallToolRequest, in listProcessesInput) (*mcp.CallToolResult, listProcessesOutput, error) {
		return nil, listProcessesOutput{Processes: a.processes.List()}, nil
	}))

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "processExecute",
		Description: "Start a process in the workspace and return immediately",
	}, logToolCall("processExecute", func(ctx context.Context, req *mcp.CallToolRequest, in processExecuteInput) (*mcp.CallToolResult, processExecuteOutput, error) {
		workingDir := ""
		if in.WorkingDir != nil {
			workingDir = *in.WorkingDir
		}
		timeout := 0
		if in.Timeout != nil {
			timeout = *in.Timeout
		}
		rec, err := a.processes.Exec(process.ExecRequest{
			Command:      in.Command,
			Args:         in.Args,
			Cwd:          workingDir,
			Env:          in.Env,
			Timeout:      timeout,
			WaitForPorts: in.WaitForPorts,
		})
		if err != nil {
			return nil, processExecuteOutput{}, fmt.Errorf("failed to start process: %w", err)
		}
		return nil, processExecuteOutput{ProcessID: rec.ID, PID: rec.PID(), Status: "running"}, nil
	}))

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "processStatus",
		Description: "Get a process's status by its process ID",
	}, logToolCall("processStatus", func(ctx context.Context, req *mcp.CallToolRequest, in processIdentifierInput) (*mcp.CallToolResult, process.View, error) {
		view, err := a.processes.Status(in.ProcessID)
		if err != nil {
			return nil, process.View{}, fmt.Errorf("failed to get process: %w", err)
		}
		return nil, view, nil
	}))

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "processGetLogs",
		Description: "Get the collected stdout/stderr for a process",
	}, logToolCall("processGetLogs", func(ctx context.Context, req *mcp.CallToolRequest, in processIdentifierInput) (*mcp.CallToolResult, processLogsOutput, error) {
		lines, _, err := a.processes.Logs(in.ProcessID, 0)
		if err != nil {
			return nil, processLogsOutput{}, fmt.Errorf("failed to get process logs: %w", err)
		}
		joined := ""
		for i, l := range lines {
			if i > 0 {
				joined += "\n"
			}
			joined += l
		}
		return nil, processLogsOutput{Logs: joined}, nil
	}))

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "processKill",
		Description: "Kill a process by its process ID",
	}, logToolCall("processKill", func(ctx context.Context, req *mcp.CallToolRequest, in processIdentifierInput) (*mcp.CallToolResult, processStatusOutput, error) {
		if err := a.processes.Kill(in.ProcessID, "SIGKILL"); err != nil {
			return nil, processStatusOutput{}, fmt.Errorf("failed to kill process: %w", err)
		}
		return nil, processStatusOutput{Status: "killed"}, nil
	}))
}
