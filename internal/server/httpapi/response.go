package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/server/storage"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, api.ErrorBody{
		Success: false,
		Error:   api.ErrorDetail{Code: code, Message: message},
	})
}

// abortWithError writes the envelope for a service error and stops the chain.
func (h *handler) abortWithError(c *gin.Context, op string, err error) {
	statusCode, code, message := classify(err)
	if statusCode == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), op+" failed", "error", err)
		_ = c.Error(err)
	}
	Error(c, statusCode, code, message)
	c.Abort()
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, api.CodeValidation, err.Error()
	case errors.Is(err, common.ErrorIncorrectMetadata):
		return http.StatusConflict, api.CodeConflict, err.Error()
	case errors.Is(err, storage.ErrObjectMissing):
		return http.StatusConflict, api.CodeObjectMissing, "no bytes stored under object key"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, api.CodeNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, api.CodeInternal, "deadline exceeded"
	}
	return http.StatusInternalServerError, api.CodeInternal, "internal error"
}
