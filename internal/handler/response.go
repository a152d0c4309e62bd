package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope wraps every /api/v1 body. Code is 0 on success and the HTTP status
// otherwise.
type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, envelope{Message: "ok", Data: data, Meta: meta})
}

// Error aborts the chain so later middleware does not write a second body.
func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.AbortWithStatusJSON(status, envelope{Code: status, Message: message, Meta: meta})
}
