package httpapi

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

const agentVersion = "1.0.0"

// handleHealth reports liveness plus process uptime.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  0,
		"message": "ok",
		"health":  "ok",
		"uptime":  time.Since(s.StartTime).Seconds(),
		"version": agentVersion,
	})
}

// handleHealthLive is a bare liveness probe with no workspace check,
// supplemental per original_source's auth bypass list.
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) handleHealthLive(c *gin.Context) {
	c.JSON(200, gin.H{"status": 0, "message": "alive"})
}

// handleHealthReady reports readiness: the workspace root must exist.
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) handleHealthReady(c *gin.Context) {
	_, err := os.Stat(s.Config.WorkspacePath)
	ready := err == nil
	c.JSON(200, gin.H{
		"status":    0,
		"message":   "ready",
		"ready":     ready,
		"workspace": ready,
	})
}
