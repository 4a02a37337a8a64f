package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"kos_chat/pkg/errors"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)

		body := gin.H{"error": err.Error()}
		if statusCode == http.StatusUnauthorized {
			body["redirect"] = loginRedirect
		}
		c.JSON(statusCode, body)
	}
}
