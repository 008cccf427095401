package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/pkg/errcode"
	appErr "github.com/xxxsen/readiness/internal/pkg/errors"
	"github.com/xxxsen/readiness/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "session not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, detail(err, appErr.ErrInvalid))
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, detail(err, appErr.ErrConflict))
	case errors.Is(err, appErr.ErrNotReady):
		response.Error(c, errcode.ErrNotReady, detail(err, appErr.ErrNotReady))
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many sessions")
	case errors.Is(err, appErr.ErrTooLarge):
		response.Error(c, errcode.ErrTooLarge, detail(err, appErr.ErrTooLarge))
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err error, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
