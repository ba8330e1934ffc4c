package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 请求日志中间件
// 健康检查走探针，不落日志
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		entry := c.Request.Method + " " + c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			entry += "?" + raw
		}
		log.Printf("%s | %d | %v | %s", entry, c.Writer.Status(), time.Since(start), c.ClientIP())

		for _, e := range c.Errors {
			log.Printf("%s | error: %v", entry, e.Err)
		}
	}
}
