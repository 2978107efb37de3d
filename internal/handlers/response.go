package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellslab/s4m-api/internal/frame"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// matrixByOrient serializes a matrix the way the orient parameter asks for:
// one map per row, the split form, or a map keyed by row id.
func matrixByOrient(m *frame.Matrix, orient string) (any, bool) {
	switch orient {
	case "records":
		return m.Records(), true
	case "split":
		return m.Split(), true
	case "index":
		return m.IndexRecords(), true
	}
	return nil, false
}

func tableByOrient(t *frame.Table, orient string) (any, bool) {
	switch orient {
	case "records":
		return t.Records(), true
	case "split":
		return t.Split(), true
	case "index":
		return t.IndexRecords(), true
	}
	return nil, false
}
