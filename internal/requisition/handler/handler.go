package handler

import (
	"errors"

	"github.com/bitfantasy/requisition/internal/middleware"
	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/service"
	"github.com/bitfantasy/requisition/internal/requisition/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Request *RequestHandler
	File    *FileHandler
	SSE     *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.RequestService, hub *sse.Hub, logger *zap.Logger) *Handlers {
	return &Handlers{
		Request: NewRequestHandler(svc, logger),
		File:    NewFileHandler(svc, logger),
		SSE:     NewSSEHandler(hub),
	}
}

// RegisterRoutes 注册采购申请路由
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	reviewers := middleware.RequireRole(
		entity.RoleHOD, entity.RoleCFO, entity.RoleCEO, entity.RoleSuperUser, entity.RoleAnalyst,
	)

	api.GET("/reference", h.Request.Reference)
	api.GET("/events", h.SSE.Stream)
	api.GET("/files/:filename", h.File.Open)

	requests := api.Group("/requests")
	{
		requests.POST("", middleware.RequireRole(
			entity.RoleRequester, entity.RoleHOD, entity.RoleCFO, entity.RoleCEO,
		), h.Request.Create)
		requests.GET("", h.Request.List)
		requests.GET("/export", h.Request.Export)
		requests.GET("/:id", h.Request.Get)
		requests.PATCH("/:id/status", reviewers, h.Request.UpdateStatus)
		requests.POST("/:id/decision", reviewers, h.Request.Decide)
		requests.POST("/:id/checklist", middleware.RequireRole(entity.RoleAnalyst), h.Request.UpdateChecklist)
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 版本冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// GetActor 从上下文获取当前用户，缺失时返回401
func GetActor(c *gin.Context) (entity.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		Unauthorized(c, "Unauthorized")
	}
	return actor, ok
}

// respondError 将服务层错误映射为响应
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var vErr *service.ValidationError
	var aErr *service.AuthorizationError
	switch {
	case errors.As(err, &vErr):
		BadRequest(c, vErr.Message)
	case errors.As(err, &aErr):
		Forbidden(c, aErr.Reason)
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, "Request not found")
	case errors.Is(err, service.ErrConflict):
		Conflict(c, "Request was updated by someone else, reload and try again")
	default:
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		InternalError(c, "Internal server error")
	}
}
