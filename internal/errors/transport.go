package errors

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

func asAppError(err error) *utils.AppError {
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// classifyTransport handles failures that never produced an API response
func classifyTransport(backend string, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	code := utils.ErrCodeNetworkError
	retryable := true

	var netErr net.Error
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		code = utils.ErrCodeTimeout
	case stderrors.As(err, &netErr) && netErr.Timeout():
		code = utils.ErrCodeTimeout
	}

	logger.Debug("Transport error",
		logging.F("error", err.Error()),
		logging.F("errorCode", code),
		logging.F("backend", backend),
	)

	return utils.WrapAppError(utils.NewCLIError(code, err.Error()).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("backend", backend).
		Build(), err)
}
