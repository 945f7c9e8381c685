package errors

import (
	stderrors "errors"
	"strconv"

	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
	"google.golang.org/api/googleapi"
)

// ClassifyGoogleAPIError maps a Drive API failure to an AppError
func ClassifyGoogleAPIError(err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if appErr := asAppError(err); appErr != nil {
		return appErr
	}

	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		return classifyTransport(utils.BackendGDrive, err, reqCtx, logger)
	}

	var code string
	var retryable bool
	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}

	switch apiErr.Code {
	case 400:
		code = utils.ErrCodeInvalidArgument
	case 401:
		code = utils.ErrCodeAuthExpired
	case 403:
		code = utils.ErrCodePermissionDenied
		switch reason {
		case "userRateLimitExceeded", "rateLimitExceeded", "sharingRateLimitExceeded":
			code = utils.ErrCodeRateLimited
			retryable = true
		case "dailyLimitExceeded":
			code = utils.ErrCodeRateLimited
		case "authError":
			code = utils.ErrCodeAuthInvalid
		}
	case 404:
		code = utils.ErrCodeFileNotFound
	case 408:
		code = utils.ErrCodeTimeout
		retryable = true
	case 429:
		code = utils.ErrCodeRateLimited
		retryable = true
	case 500, 502, 503, 504:
		code = utils.ErrCodeNetworkError
		retryable = true
	default:
		code = utils.ErrCodeUnknown
		retryable = apiErr.Code >= 500
	}

	message := apiErr.Message
	if message == "" {
		message = apiErr.Error()
	}

	logger.Debug("API error classified",
		logging.F("httpStatus", apiErr.Code),
		logging.F("errorCode", code),
		logging.F("reason", reason),
		logging.F("retryable", retryable),
		logging.F("path", reqCtx.RemotePath),
	)

	builder := utils.NewCLIError(code, message).
		WithHTTPStatus(apiErr.Code).
		WithAPIReason(reason).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("backend", utils.BackendGDrive)

	if reqCtx.RemotePath != "" {
		builder.WithContext("path", reqCtx.RemotePath)
	}
	if retryable {
		if seconds, convErr := strconv.Atoi(apiErr.Header.Get("Retry-After")); convErr == nil {
			builder.WithContext(utils.RetryAfterKey, seconds)
		}
	}

	switch code {
	case utils.ErrCodeAuthExpired, utils.ErrCodeAuthInvalid:
		builder.WithContext("suggestedAction", "obtain a fresh access token and run again")
	case utils.ErrCodeFileNotFound:
		builder.WithContext("suggestedAction", "verify the folder path or ID is correct and shared with you")
	}

	return utils.WrapAppError(builder.Build(), err)
}
