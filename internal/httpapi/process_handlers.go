package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/devbox-run/agent/internal/apierr"
	"github.com/devbox-run/agent/internal/process"
)

// execRequestBody is the shared JSON body shape for exec/exec-sync/sync-stream.
type execRequestBody struct {
	Command          string            `json:"command" binding:"required"`
	Args             []string          `json:"args"`
	Cwd              string            `json:"cwd"`
	Env              map[string]string `json:"env"`
	Shell            string            `json:"shell"`
	Timeout          int               `json:"timeout"`
	WaitForPorts     []int             `json:"waitForPorts"`
	RestartOnFailure bool              `json:"restartOnFailure"`
	MaxRestarts      int               `json:"maxRestarts"`
}

func (b execRequestBody) toExecRequest(s *Server) process.ExecRequest {
	cwd := b.Cwd
	if cwd != "" {
		cwd = resolvePath(s.Config.WorkspacePath, cwd)
	}
	return process.ExecRequest{
		Command:          b.Command,
		Args:             b.Args,
		Cwd:              cwd,
		Env:              b.Env,
		Shell:            b.Shell,
		Timeout:          b.Timeout,
		WaitForPorts:     b.WaitForPorts,
		RestartOnFailure: b.RestartOnFailure,
		MaxRestarts:      b.MaxRestarts,
	}
}

// handleProcessExec starts a process and returns immediately.
// @Summary Execute a process asynchronously
// @Tags process
// @Accept json
// @Produce json
// @Router /process/exec [post]
func (s *Server) handleProcessExec(c *gin.Context) {
	var body execRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}

	rec, err := s.Processes.Exec(body.toExecRequest(s))
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	apierr.Success(c, "", map[string]interface{}{
		"processId":     rec.ID,
		"pid":           rec.PID(),
		"processStatus": "running",
	})
}

// handleProcessExecSync runs a process to completion and returns its
// collected output.
// @Summary Execute a process synchronously
// @Tags process
// @Accept json
// @Produce json
// @Router /process/exec-sync [post]
func (s *Server) handleProcessExecSync(c *gin.Context) {
	var body execRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}

	res, err := s.Processes.ExecSync(body.toExecRequest(s))
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	apierr.Success(c, "", map[string]interface{}{
		"stdout":     res.Stdout,
		"stderr":     res.Stderr,
		"exitCode":   res.ExitCode,
		"durationMs": res.DurationMs,
		"startTime":  res.StartTime,
		"endTime":    res.EndTime,
	})
}

// handleProcessExecSyncStream runs a process and streams SSE events.
// @Summary Execute a process and stream its output as SSE
// @Tags process
// @Accept json
// @Produce text/event-stream
// @Router /process/sync-stream [post]
func (s *Server) handleProcessExecSyncStream(c *gin.Context) {
	var body execRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}

	events, err := s.Processes.ExecSyncStream(body.toExecRequest(s))
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	writeSSEStream(c, func(send func(event string, data interface{})) {
		for ev := range events {
			send(ev.Event, ev.Data)
		}
	})
}

// handleProcessList returns a status snapshot of every tracked process.
// @Summary List processes
// @Tags process
// @Produce json
// @Router /process/list [get]
func (s *Server) handleProcessList(c *gin.Context) {
	apierr.Success(c, "", map[string]interface{}{"processes": s.Processes.List()})
}

// handleProcessStatus returns one process's status snapshot.
// @Summary Get process status
// @Tags process
// @Produce json
// @Router /process/{id}/status [get]
func (s *Server) handleProcessStatus(c *gin.Context) {
	view, err := s.Processes.Status(c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", map[string]interface{}{
		"processId":     view.ProcessID,
		"pid":           view.PID,
		"command":       view.Command,
		"processStatus": view.Status,
		"startTime":     view.StartTime,
		"endTime":       view.EndTime,
		"exitCode":      view.ExitCode,
	})
}

// handleProcessKill signals a running process.
// @Summary Kill a process
// @Tags process
// @Produce json
// @Router /process/{id}/kill [post]
func (s *Server) handleProcessKill(c *gin.Context) {
	var body struct {
		Signal string `json:"signal"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Signal == "" {
		body.Signal = "SIGKILL"
	}

	if err := s.Processes.Kill(c.Param("id"), body.Signal); err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", map[string]interface{}{"success": true})
}

// handleProcessLogs returns a JSON snapshot of the last N lines, or an SSE
// stream replaying them and following live, selected by Accept header or
// ?stream=true.
// @Summary Get process logs
// @Tags process
// @Produce json
// @Router /process/{id}/logs [get]
func (s *Server) handleProcessLogs(c *gin.Context) {
	id := c.Param("id")
	tail := parseTailParam(c)

	if wantsStream(c) {
		lines, consumer, err := s.Processes.LogsConsumer(id, tail)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		streamLogLines(c, lines, consumer)
		return
	}

	lines, view, err := s.Processes.Logs(id, tail)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", map[string]interface{}{
		"logs":          lines,
		"processStatus": view.Status,
	})
}

func parseTailParam(c *gin.Context) int {
	if v := c.Query("tail"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func wantsStream(c *gin.Context) bool {
	if c.Query("stream") == "true" {
		return true
	}
	return c.GetHeader("Accept") == "text/event-stream"
}
