package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pagination is the list metadata attached to a paged response
type Pagination struct {
	Count int `json:"count"`
}

// Envelope wraps all API responses. A success carries Data (and Pagination
// for a paged list); a failure carries ErrorType, Errors and Message.
type Envelope struct {
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	ErrorType  string      `json:"error_type,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// IsError reports whether the envelope describes a failure
func (e Envelope) IsError() bool {
	return e.ErrorType != ""
}

// RespondWithData sends a success envelope
func RespondWithData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Data: data})
}

// RespondWithList sends a list envelope. A nil page leaves out the pagination key.
func RespondWithList(c *gin.Context, data interface{}, page *Pagination) {
	c.JSON(http.StatusOK, Envelope{Data: data, Pagination: page})
}

// RespondWithEnvelope sends a prepared envelope, or only the status for 204
func RespondWithEnvelope(c *gin.Context, status int, env Envelope) {
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, env)
}
