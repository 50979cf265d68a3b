package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/examcore/internal/apperr"
)

// Error codes in response bodies.
const (
	codeInvalid     = "invalid_argument"
	codeNotFound    = "not_found"
	codeConflict    = "conflict"
	codeUnavailable = "unavailable"
	codeInternal    = "internal"
	codeRateLimited = "rate_limited"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeError maps a service error to a status code and JSON body.
func (s *Server) writeError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code: codeInvalid, Message: ve.Message, Field: ve.Field,
		}})
	case errors.Is(err, apperr.ErrNotFound):
		abortWith(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		abortWith(c, http.StatusConflict, codeConflict, "concurrent update, retry the request")
	case errors.Is(err, apperr.ErrStoreUnavailable):
		s.log.Error("store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		abortWith(c, http.StatusServiceUnavailable, codeUnavailable, "state store unavailable")
	default:
		s.log.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		abortWith(c, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
