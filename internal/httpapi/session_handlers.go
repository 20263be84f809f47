package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/devbox-run/agent/internal/apierr"
	"github.com/devbox-run/agent/internal/session"
)

func viewToMap(v session.View) map[string]interface{} {
	return map[string]interface{}{
		"sessionId":     v.SessionID,
		"shell":         v.Shell,
		"cwd":           v.Cwd,
		"env":           v.Env,
		"sessionStatus": v.Status,
		"createdAt":     v.CreatedAt,
		"lastUsedAt":    v.LastUsedAt,
	}
}

// handleSessionCreate starts a new interactive shell session.
// @Summary Create a session
// @Tags sessions
// @Accept json
// @Produce json
// @Router /sessions/create [post]
func (s *Server) handleSessionCreate(c *gin.Context) {
	var body struct {
		Shell      string            `json:"shell"`
		WorkingDir string            `json:"workingDir"`
		Env        map[string]string `json:"env"`
	}
	_ = c.ShouldBindJSON(&body)

	rec, err := s.Sessions.Create(session.CreateRequest{
		Shell:      body.Shell,
		WorkingDir: body.WorkingDir,
		Env:        body.Env,
	})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", viewToMap(rec.View()))
}

// handleSessionList lists every tracked session.
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Router /sessions [get]
func (s *Server) handleSessionList(c *gin.Context) {
	apierr.Success(c, "", map[string]interface{}{"sessions": s.Sessions.List()})
}

// handleSessionGet returns one session's status.
// @Summary Get a session
// @Tags sessions
// @Produce json
// @Router /sessions/{id} [get]
func (s *Server) handleSessionGet(c *gin.Context) {
	view, err := s.Sessions.Get(c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", viewToMap(view))
}

// handleSessionEnv merges environment variables into a session.
// @Summary Update session environment
// @Tags sessions
// @Accept json
// @Produce json
// @Router /sessions/{id}/env [post]
func (s *Server) handleSessionEnv(c *gin.Context) {
	var body struct {
		Env map[string]string `json:"env" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	view, err := s.Sessions.EnvUpdate(c.Param("id"), body.Env)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", viewToMap(view))
}

// handleSessionExec writes a command to the session's stdin.
// @Summary Run a command in a session
// @Tags sessions
// @Accept json
// @Produce json
// @Router /sessions/{id}/exec [post]
func (s *Server) handleSessionExec(c *gin.Context) {
	var body struct {
		Command string `json:"command" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	res, err := s.Sessions.Exec(c.Param("id"), body.Command)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", map[string]interface{}{
		"exitCode": res.ExitCode,
		"stdout":   res.Stdout,
		"stderr":   res.Stderr,
		"duration": res.Duration,
	})
}

// handleSessionCd changes a session's working directory.
// @Summary Change a session's directory
// @Tags sessions
// @Accept json
// @Produce json
// @Router /sessions/{id}/cd [post]
func (s *Server) handleSessionCd(c *gin.Context) {
	var body struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	view, err := s.Sessions.Cd(c.Param("id"), body.Path)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", viewToMap(view))
}

// handleSessionTerminate kills a session's shell child.
// @Summary Terminate a session
// @Tags sessions
// @Produce json
// @Router /sessions/{id}/terminate [post]
func (s *Server) handleSessionTerminate(c *gin.Context) {
	if err := s.Sessions.Terminate(c.Param("id")); err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", map[string]interface{}{"success": true})
}

// handleSessionLogs returns a JSON snapshot of the last N log lines.
// @Summary Get session logs
// @Tags sessions
// @Produce json
// @Router /sessions/{id}/logs [get]
func (s *Server) handleSessionLogs(c *gin.Context) {
	tail := parseTailParam(c)
	lines, view, err := s.Sessions.Logs(c.Param("id"), tail)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	apierr.Success(c, "", map[string]interface{}{
		"logs":          lines,
		"sessionStatus": view.Status,
	})
}
