package response

import (
	"net/http"

	"equip_shop/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code,omitempty"`    // 业务码，成功时省略
	Message string      `json:"message,omitempty"` // 提示信息
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"` // 仅 debug 模式下返回底层错误
}

// Debug 为 true 时错误响应附带底层错误信息
var Debug bool

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Success: false,
		Code:    errCode,
		Message: msg,
	})
}

// FromError 根据错误类别输出对应的 HTTP 状态
func FromError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	resp := Response{
		Success: false,
		Code:    appErr.Code,
		Message: appErr.Message,
	}
	if Debug && appErr.Err != nil {
		resp.Error = appErr.Err.Error()
	}
	c.JSON(appErr.Status, resp)
}

// Abort 中间件中断请求
func Abort(c *gin.Context, err error) {
	FromError(c, err)
	c.Abort()
}
