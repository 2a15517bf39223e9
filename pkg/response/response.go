// Package response defines the JSON envelope for REST replies.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the shape of every REST reply. Data is set on success,
// Error on failure, never both.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

// ErrorData carries a machine-readable code next to the human message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a 200 with the payload wrapped in the envelope
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Error writes a failure envelope with the given status and code
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	})
}

// BadRequest rejects invalid client input
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// InternalError reports a server-side failure without leaking detail
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
