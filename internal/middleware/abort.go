package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
	"github.com/jwalitptl/orders-api/pkg/httputil"
)

// abort stops the chain with an envelope shaped failure.
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, httputil.Envelope{
		ErrorType: apperrors.TypeOther,
		Errors:    message,
		Message:   message,
	})
}
