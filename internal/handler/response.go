package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/velobot/internal/service/openai"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
}

// BadGateway 502 错误响应，远程端或下游服务失败
func BadGateway(c *gin.Context, msg string) {
	c.JSON(http.StatusBadGateway, ErrorResponse{Error: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
}

// Error 根据错误类型返回相应的错误响应
// 远程端失败映射为 502，其余（含存储失败）映射为 500
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if openai.IsRemote(err) {
		BadGateway(c, err.Error())
		return
	}
	InternalServerError(c, err.Error())
}
