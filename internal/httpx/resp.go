package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the wire shape of every failed request.
type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// OK sends a 200 response with the payload serialized as-is.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Fail sends an error response with specified HTTP status, business code, and message
func Fail(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, ErrorResponse{
		Code:  code,
		Error: message,
	})
}

// FailErr sends an error response from an AppError.
// If AppError.Err is not nil, it is logged but not returned to the client.
func FailErr(c *gin.Context, err *AppError) {
	if err.Err != nil {
		logrus.WithFields(logrus.Fields{
			"code": err.Code,
			"path": c.FullPath(),
		}).Errorf("%s: %v", err.Message, err.Err)
	}

	c.JSON(err.HTTPStatus, ErrorResponse{
		Code:  err.Code,
		Error: err.Message,
	})
}
