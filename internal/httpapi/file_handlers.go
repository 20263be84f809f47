package httpapi

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/devbox-run/agent/internal/apierr"
	"github.com/devbox-run/agent/internal/fsys"
)

// handleFilesList lists a directory's direct children.
// @Summary List a directory
// @Tags files
// @Produce json
// @Router /files/list [get]
func (s *Server) handleFilesList(c *gin.Context) {
	path := resolvePath(s.Config.WorkspacePath, c.Query("path"))
	entries, err := fsys.List(path)
	if err != nil {
		apierr.Respond(c, fsError(err))
		return
	}
	apierr.Success(c, "", map[string]interface{}{"path": path, "entries": entries})
}

// handleFilesRead returns a file's content, or streams it as a download
// when the request hit /files/download.
// @Summary Read a file
// @Tags files
// @Produce json
// @Router /files/read [get]
func (s *Server) handleFilesRead(c *gin.Context) {
	path := resolvePath(s.Config.WorkspacePath, c.Query("path"))
	file, err := fsys.Read(path)
	if err != nil {
		apierr.Respond(c, fsError(err))
		return
	}
	if c.Request.URL.Path == "/api/v1/files/download" {
		c.Header("Content-Disposition", "attachment; filename=\""+file.Path+"\"")
		c.Data(http.StatusOK, "application/octet-stream", file.Content)
		return
	}
	apierr.Success(c, "", map[string]interface{}{
		"path":         file.Path,
		"content":      string(file.Content),
		"size":         file.Size,
		"permissions":  file.Permissions,
		"lastModified": file.LastModified,
	})
}

// handleFilesWrite creates or overwrites a file.
// @Summary Write a file
// @Tags files
// @Accept json
// @Produce json
// @Router /files/write [post]
func (s *Server) handleFilesWrite(c *gin.Context) {
	var body struct {
		Path    string `json:"path" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	path := resolvePath(s.Config.WorkspacePath, body.Path)
	if err := fsys.Write(path, []byte(body.Content), 0644); err != nil {
		apierr.Respond(c, fsError(err))
		return
	}
	apierr.Success(c, "File written successfully", map[string]interface{}{"path": path})
}

// handleFilesDelete removes a file or directory.
// @Summary Delete a file or directory
// @Tags files
// @Accept json
// @Produce json
// @Router /files/delete [post]
func (s *Server) handleFilesDelete(c *gin.Context) {
	var body struct {
		Path      string `json:"path" binding:"required"`
		Recursive bool   `json:"recursive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	path := resolvePath(s.Config.WorkspacePath, body.Path)
	if err := fsys.Delete(path, body.Recursive); err != nil {
		apierr.Respond(c, fsError(err))
		return
	}
	apierr.Success(c, "Deleted successfully", nil)
}

// handleFilesMove relocates a file or directory.
// @Summary Move a file or directory
// @Tags files
// @Accept json
// @Produce json
// @Router /files/move [post]
func (s *Server) handleFilesMove(c *gin.Context) {
	s.moveOrRename(c)
}

// handleFilesRename is Move under the name the peripheral spec uses for
// same-directory renames.
// @Summary Rename a file or directory
// @Tags files
// @Accept json
// @Produce json
// @Router /files/rename [post]
func (s *Server) handleFilesRename(c *gin.Context) {
	s.moveOrRename(c)
}

func (s *Server) moveOrRename(c *gin.Context) {
	var body struct {
		Source      string `json:"source" binding:"required"`
		Destination string `json:"destination" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	src := resolvePath(s.Config.WorkspacePath, body.Source)
	dst := resolvePath(s.Config.WorkspacePath, body.Destination)
	if err := fsys.Move(src, dst); err != nil {
		apierr.Respond(c, fsError(err))
		return
	}
	apierr.Success(c, "", map[string]interface{}{"source": src, "destination": dst})
}

// handleFilesBatchUpload writes a relative-path -> content map under a
// root directory.
// @Summary Upload several files at once
// @Tags files
// @Accept json
// @Produce json
// @Router /files/batch-upload [post]
func (s *Server) handleFilesBatchUpload(c *gin.Context) {
	var body struct {
		Root  string            `json:"root"`
		Files map[string]string `json:"files" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	root := resolvePath(s.Config.WorkspacePath, body.Root)
	if err := fsys.BatchUpload(root, body.Files); err != nil {
		apierr.Respond(c, fsError(err))
		return
	}
	apierr.Success(c, "", map[string]interface{}{"root": root, "count": len(body.Files)})
}

// handleFilesBatchDownload reads a set of paths and returns their content.
// @Summary Download several files at once
// @Tags files
// @Accept json
// @Produce json
// @Router /files/batch-download [post]
func (s *Server) handleFilesBatchDownload(c *gin.Context) {
	var body struct {
		Paths []string `json:"paths" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.Respond(c, apierr.Validation(err.Error()))
		return
	}
	resolved := make([]string, len(body.Paths))
	for i, p := range body.Paths {
		resolved[i] = resolvePath(s.Config.WorkspacePath, p)
	}
	files, err := fsys.BatchDownload(resolved)
	if err != nil {
		apierr.Respond(c, fsError(err))
		return
	}
	out := make(map[string]string, len(files))
	for p, data := range files {
		out[p] = string(data)
	}
	apierr.Success(c, "", map[string]interface{}{"files": out})
}

// fsError maps an os-level error to the apierr taxonomy.
func fsError(err error) *apierr.Error {
	if os.IsNotExist(err) {
		return apierr.NotFound(err.Error())
	}
	return apierr.OperationError(err.Error(), nil)
}
