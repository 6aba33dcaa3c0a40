// internal/api/responses/responses.go
package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

// APIResponse defines the standard envelope for API responses.
type APIResponse struct {
	Status  string      `json:"status"` // "success" or "error"
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// InitLogger sets the structured logger used for API responses. nil keeps a no-op logger.
func InitLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l.Named("api")
}

// Success sends a 200 response with the provided data and message.
func Success(c *gin.Context, data interface{}, message string) {
	send(c, http.StatusOK, data, message)
}

// Created sends a 201 response with the provided data and message.
func Created(c *gin.Context, data interface{}, message string) {
	send(c, http.StatusCreated, data, message)
}

func send(c *gin.Context, code int, data interface{}, message string) {
	resp := APIResponse{Status: "success", Data: data, Message: message}
	c.JSON(code, resp)
	logger.Info("API success", zap.String("path", c.Request.URL.Path), zap.Int("status", code))
}

// Error sends an error response with the provided code, message, and optional errors.
func Error(c *gin.Context, code int, message string, errs ...string) {
	resp := APIResponse{Status: "error", Message: message, Errors: errs}
	c.JSON(code, resp)
	if code >= http.StatusInternalServerError {
		logger.Error("API error", zap.String("path", c.Request.URL.Path), zap.Int("status", code), zap.Strings("errors", errs))
		return
	}
	logger.Warn("API error", zap.String("path", c.Request.URL.Path), zap.Int("status", code), zap.Strings("errors", errs))
}
