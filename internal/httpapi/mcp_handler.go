package httpapi

import "github.com/gin-gonic/gin"

// handleMCP fronts the process/session MCP tool surface over streamable
// HTTP (SPEC_FULL.md's supplemented-features section), grounded on the
// donor's src/mcp.Server.setupHTTPEndpoints gin.WrapH idiom.
// @Summary MCP tool endpoint
// @Tags mcp
// @Router /mcp [post]
func (s *Server) handleMCP(c *gin.Context) {
	s.mcp.ServeHTTP(c.Writer, c.Request)
}
