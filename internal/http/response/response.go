package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenpadel-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error   APIError `json:"error"`
	Summary any      `json:"summary,omitempty"`
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

// RespondAPIError writes err through apierr.As, so unknown errors surface as a
// generic 500. summary is attached when non-nil.
func RespondAPIError(c *gin.Context, err error, summary any) {
	apiErr := apierr.As(err)
	c.JSON(apiErr.Status, ErrorEnvelope{
		Error:   APIError{Message: apiErr.Error(), Code: apiErr.Code},
		Summary: summary,
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
