package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SizeLimitConfig represents size limit configuration
type SizeLimitConfig struct {
	MaxBodySize   int64 // in bytes
	MaxHeaderSize int   // in bytes
	SkipPaths     []string
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize:   10 << 20, // 10MB, multipart uploads included
		MaxHeaderSize: 1 << 14,  // 16KB
	}
}

// SizeLimit rejects oversized requests up front and caps the body reader
// for requests that do not announce their length.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		if config.MaxBodySize > 0 && c.Request.ContentLength > config.MaxBodySize {
			abort(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes.", config.MaxBodySize))
			return
		}

		headerSize := 0
		for name, values := range c.Request.Header {
			headerSize += len(name)
			for _, value := range values {
				headerSize += len(value)
			}
		}
		if config.MaxHeaderSize > 0 && headerSize > config.MaxHeaderSize {
			abort(c, http.StatusRequestHeaderFieldsTooLarge,
				fmt.Sprintf("Request headers exceed %d bytes.", config.MaxHeaderSize))
			return
		}

		if config.MaxBodySize > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxBodySize)
		}
		c.Next()
	}
}
