package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/bitfantasy/requisition/internal/requisition/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileHandler 附件处理器
type FileHandler struct {
	svc    *service.RequestService
	logger *zap.Logger
}

func NewFileHandler(svc *service.RequestService, logger *zap.Logger) *FileHandler {
	return &FileHandler{svc: svc, logger: logger}
}

// Open 预览附件，?download=true 时下载
// GET /api/v1/files/:filename
func (h *FileHandler) Open(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		return
	}
	name := filepath.Base(c.Param("filename"))
	download := c.Query("download") == "true"

	rc, err := h.svc.OpenAttachment(c.Request.Context(), actor, name, download)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.Warn("Attachment stream interrupted", zap.String("file", name), zap.Error(err))
	}
}
