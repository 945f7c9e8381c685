package errors

import (
	"strings"

	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// dropboxRule matches a fragment of a Dropbox error summary
type dropboxRule struct {
	fragment  string
	code      string
	retryable bool
}

// Order matters: the first matching fragment wins.
var dropboxRules = []dropboxRule{
	{"expired_access_token", utils.ErrCodeAuthExpired, false},
	{"invalid_access_token", utils.ErrCodeAuthInvalid, false},
	{"user_suspended", utils.ErrCodeAuthInvalid, false},
	{"invalid_select_user", utils.ErrCodeAuthInvalid, false},
	{"missing_scope", utils.ErrCodePermissionDenied, false},
	{"not_found", utils.ErrCodeFileNotFound, false},
	{"malformed_path", utils.ErrCodeInvalidPath, false},
	{"not_folder", utils.ErrCodeInvalidPath, false},
	{"not_file", utils.ErrCodeInvalidPath, false},
	{"restricted_content", utils.ErrCodePermissionDenied, false},
	{"no_permission", utils.ErrCodePermissionDenied, false},
	{"unsupported_file", utils.ErrCodePermissionDenied, false},
	{"too_many_requests", utils.ErrCodeRateLimited, true},
	{"too_many_write_operations", utils.ErrCodeRateLimited, true},
	{"internal_error", utils.ErrCodeNetworkError, true},
	{"Internal Server Error", utils.ErrCodeNetworkError, true},
	{"Service Unavailable", utils.ErrCodeNetworkError, true},
	{"Bad Gateway", utils.ErrCodeNetworkError, true},
	{"Bad Request", utils.ErrCodeInvalidArgument, false},
}

// ClassifyDropboxError maps a Dropbox SDK failure to an AppError.
// The SDK reports API errors through their error summary
// ("path/not_found/..", "expired_access_token/.."), so classification
// matches on that text. Errors without a summary are transport failures.
func ClassifyDropboxError(err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if appErr := asAppError(err); appErr != nil {
		return appErr
	}

	summary := err.Error()
	for _, rule := range dropboxRules {
		if !strings.Contains(summary, rule.fragment) {
			continue
		}
		logger.Debug("API error classified",
			logging.F("summary", summary),
			logging.F("errorCode", rule.code),
			logging.F("retryable", rule.retryable),
			logging.F("path", reqCtx.RemotePath),
		)
		builder := utils.NewCLIError(rule.code, summary).
			WithAPIReason(rule.fragment).
			WithRetryable(rule.retryable).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("requestType", string(reqCtx.RequestType)).
			WithContext("backend", utils.BackendDropbox)
		if reqCtx.RemotePath != "" {
			builder.WithContext("path", reqCtx.RemotePath)
		}
		if utils.IsAuthCode(rule.code) {
			builder.WithContext("suggestedAction", "generate a new access token in the Dropbox App Console")
		}
		return utils.WrapAppError(builder.Build(), err)
	}

	if looksLikeAPISummary(summary) {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeUnknown, summary).
			WithAPIReason(strings.SplitN(summary, "/", 2)[0]).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("backend", utils.BackendDropbox).
			Build(), err)
	}

	return classifyTransport(utils.BackendDropbox, err, reqCtx, logger)
}

// looksLikeAPISummary reports whether s has the "tag/subtag/..." shape of
// a Dropbox error summary
func looksLikeAPISummary(s string) bool {
	tag, _, ok := strings.Cut(s, "/")
	if !ok || tag == "" {
		return false
	}
	for _, r := range tag {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}
