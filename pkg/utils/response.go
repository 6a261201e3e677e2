package utils

import (
	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func SuccessResponse(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Success: true,
		Message: message,
	})
}

// ErrorResponse writes the error envelope. The underlying error is only
// attached to the gin context so the access log can pick it up; it is never
// sent to the client.
func ErrorResponse(c *gin.Context, code int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(code, APIResponse{
		Success: false,
		Error:   message,
	})
}

// AbortWithError writes the error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, APIResponse{
		Success: false,
		Error:   message,
	})
}
