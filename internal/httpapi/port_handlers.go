package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/devbox-run/agent/internal/apierr"
)

// handlePorts lists every wildcard-bound listening port on the box.
// @Summary List open ports
// @Tags ports
// @Produce json
// @Router /ports [get]
func (s *Server) handlePorts(c *gin.Context) {
	ports, err := s.Ports.GetPorts()
	if err != nil {
		apierr.Respond(c, apierr.Internal("failed to read open ports: "+err.Error()))
		return
	}
	apierr.Success(c, "", map[string]interface{}{"ports": ports})
}

// handlePortsForPID lists the ports owned by one process.
// @Summary List open ports for a PID
// @Tags ports
// @Produce json
// @Router /ports/process/{pid} [get]
func (s *Server) handlePortsForPID(c *gin.Context) {
	pid, err := strconv.Atoi(c.Param("pid"))
	if err != nil {
		apierr.Respond(c, apierr.Validation("pid must be an integer"))
		return
	}
	ports, err := s.Ports.GetPortsForPID(pid)
	if err != nil {
		apierr.Respond(c, apierr.NotFound("no such process or no open fds: "+err.Error()))
		return
	}
	apierr.Success(c, "", map[string]interface{}{"ports": ports})
}
