package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Gunvolt24/kafka-runner/pkg/ctxmeta"
)

// HeaderRequestID - заголовок корреляции запроса.
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen - предел длины клиентского id.
const maxRequestIDLen = 128

// RequestIDMiddleware берёт X-Request-ID клиента или генерирует UUID, если заголовка
// нет или он не годится для логов. id кладётся в контекст запроса и возвращается в ответе.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(ctxmeta.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// validRequestID: непустой, не длиннее maxRequestIDLen, только печатный ASCII без пробелов.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
