// Package core holds the shared HTTP response envelope.
package core

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libreassistant/poco/pkg/errorx"
	"github.com/libreassistant/poco/pkg/logger"
)

// ErrResponse defines the return messages when an error occurred.
// Reference is omitted if it does not exist.
type ErrResponse struct {
	// Code defines the business error code.
	Code int `json:"code"`
	// Message contains the details of this message. This message is suitable
	// to be exposed to external callers.
	Message string `json:"message"`
	// Reference returns the reference document which may be useful to solve
	// this error.
	Reference string `json:"reference,omitempty"`
}

// WriteResponse writes an error or the response data into the HTTP response
// body. Errors are resolved through errorx.ParseCoder; errors without a
// registered code surface as the unknown coder (HTTP 500).
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		logger.Error("[HTTP] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)

		coder := errorx.ParseCoder(err)
		c.JSON(coder.HTTPStatus(), ErrResponse{
			Code:      coder.Code(),
			Message:   coder.String(),
			Reference: coder.Reference(),
		})

		return
	}

	c.JSON(http.StatusOK, data)
}
