package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/errors"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（名单上传默认 10MB）
//
// 声明的 Content-Length 已超限时直接拒绝；否则包装 MaxBytesReader，
// 读取超限由 handler 映射为 413，未写响应的情况在这里兜底。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, pkgerrors.CodeBodyTooLarge, "")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(err.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, pkgerrors.CodeBodyTooLarge, "")
				return
			}
		}
	}
}
