package httpapi

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router builds the gin.Engine: recovery + CORS + logging as outer
// middleware wrapping the whole surface (including /health* and /ws, with
// authMiddleware performing its own path-based bypass), then the
// /api/v1-nested route table, matching original_source/router.rs's
// .nest("/api/v1", …) structure and middleware layering.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(recoveryMiddleware())
	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())
	r.Use(loggingMiddleware())
	r.Use(authMiddleware(s.Config.Token))

	r.GET("/swagger", func(c *gin.Context) { c.Redirect(301, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", s.handleHealth)
	r.GET("/health/ready", s.handleHealthReady)
	r.GET("/health/live", s.handleHealthLive)
	r.GET("/ws", s.handleWebSocket)

	v1 := r.Group("/api/v1")
	{
		files := v1.Group("/files")
		files.GET("/list", s.handleFilesList)
		files.GET("/read", s.handleFilesRead)
		files.GET("/download", s.handleFilesRead)
		files.POST("/delete", s.handleFilesDelete)
		files.POST("/write", s.handleFilesWrite)
		files.POST("/batch-upload", s.handleFilesBatchUpload)
		files.POST("/batch-download", s.handleFilesBatchDownload)
		files.POST("/move", s.handleFilesMove)
		files.POST("/rename", s.handleFilesRename)

		proc := v1.Group("/process")
		proc.POST("/exec", s.handleProcessExec)
		proc.POST("/exec-sync", s.handleProcessExecSync)
		proc.POST("/sync-stream", s.handleProcessExecSyncStream)
		proc.GET("/list", s.handleProcessList)
		proc.GET("/:id/status", s.handleProcessStatus)
		proc.POST("/:id/kill", s.handleProcessKill)
		proc.GET("/:id/logs", s.handleProcessLogs)

		sessions := v1.Group("/sessions")
		sessions.POST("/create", s.handleSessionCreate)
		sessions.GET("", s.handleSessionList)
		sessions.GET("/:id", s.handleSessionGet)
		sessions.POST("/:id/env", s.handleSessionEnv)
		sessions.POST("/:id/exec", s.handleSessionExec)
		sessions.POST("/:id/cd", s.handleSessionCd)
		sessions.POST("/:id/terminate", s.handleSessionTerminate)
		sessions.GET("/:id/logs", s.handleSessionLogs)

		v1.GET("/ports", s.handlePorts)
		v1.GET("/ports/process/:pid", s.handlePortsForPID)

		v1.POST("/mcp", s.handleMCP)
	}

	return r
}
