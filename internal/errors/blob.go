package errors

import (
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
	"gocloud.dev/gcerrors"
)

// ClassifyBlobError maps a gocloud.dev bucket failure to an AppError
func ClassifyBlobError(err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if appErr := asAppError(err); appErr != nil {
		return appErr
	}

	var code string
	var retryable bool

	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		code = utils.ErrCodeFileNotFound
	case gcerrors.PermissionDenied:
		code = utils.ErrCodePermissionDenied
	case gcerrors.InvalidArgument:
		code = utils.ErrCodeInvalidArgument
	case gcerrors.ResourceExhausted:
		code = utils.ErrCodeRateLimited
		retryable = true
	case gcerrors.DeadlineExceeded:
		code = utils.ErrCodeTimeout
		retryable = true
	case gcerrors.Internal, gcerrors.Unknown:
		return classifyTransport(utils.BackendBlob, err, reqCtx, logger)
	default:
		code = utils.ErrCodeUnknown
	}

	logger.Debug("API error classified",
		logging.F("gcerrorCode", gcerrors.Code(err).String()),
		logging.F("errorCode", code),
		logging.F("path", reqCtx.RemotePath),
	)

	builder := utils.NewCLIError(code, err.Error()).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("backend", utils.BackendBlob)
	if reqCtx.RemotePath != "" {
		builder.WithContext("path", reqCtx.RemotePath)
	}
	return utils.WrapAppError(builder.Build(), err)
}
