package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	pkglogger "certhub/pkg/logger"
)

// quietPaths are probed constantly; successful hits are logged at debug.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// Logger writes one structured line per request. The route template is
// logged next to the raw path so verify lookups group by route.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		}
		if uid := c.GetString("user_id"); uid != "" {
			fields = append(fields, zap.String("user_id", uid), zap.String("role", c.GetString("role")))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		lvl, msg := zapcore.InfoLevel, "request completed"
		switch {
		case status >= 500:
			lvl, msg = zapcore.ErrorLevel, "request failed"
		case status >= 400:
			lvl, msg = zapcore.WarnLevel, "client error"
		case quietPaths[c.FullPath()]:
			lvl = zapcore.DebugLevel
		}
		pkglogger.FromContext(c.Request.Context(), logger).Log(lvl, msg, fields...)
	}
}
