// Package web is the browser UI and JSON API.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecomind/api/internal/sdg"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const requestIDHeader = "X-Request-ID"

// NewRouter wires middleware, templates and routes.
func NewRouter(logger *zap.Logger, h *Handler) (*gin.Engine, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery())
	r.SetHTMLTemplate(tmpl)

	r.GET("/", h.Index)
	r.GET("/healthz", h.Healthz)

	r.POST("/analyze", h.Analyze)
	r.POST("/pitch", h.Pitch)
	r.POST("/align", h.Align)
	r.POST("/improve", h.Improve)
	r.POST("/ideas", h.Ideas)

	api := r.Group("/api/v1")
	api.GET("/goals", h.Goals)
	api.POST("/:mode", h.API)

	return r, nil
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string { return c.GetString("request_id") }

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

var funcs = template.FuncMap{
	"goalName": func(id int) string { return sdg.Goal(id).Name() },
	"percent":  func(f float64) string { return fmt.Sprintf("%.0f", f) },
	"add":      func(a, b float64) float64 { return a + b },
}
