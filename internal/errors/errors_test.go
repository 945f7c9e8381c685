package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
	"gocloud.dev/blob/memblob"
	"google.golang.org/api/googleapi"
)

var testReqCtx = &types.RequestContext{
	Backend:     "test",
	RemotePath:  "/photos",
	RequestType: types.RequestTypeListFolder,
	TraceID:     "trace-1",
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyGoogleAPIError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{"unauthorized", &googleapi.Error{Code: 401, Message: "Invalid Credentials"}, utils.ErrCodeAuthExpired, false},
		{"forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "insufficientFilePermissions"}}}, utils.ErrCodePermissionDenied, false},
		{"user rate limit", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, utils.ErrCodeRateLimited, true},
		{"daily limit", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "dailyLimitExceeded"}}}, utils.ErrCodeRateLimited, false},
		{"not found", &googleapi.Error{Code: 404, Message: "File not found"}, utils.ErrCodeFileNotFound, false},
		{"too many", &googleapi.Error{Code: 429}, utils.ErrCodeRateLimited, true},
		{"server", &googleapi.Error{Code: 503}, utils.ErrCodeNetworkError, true},
		{"wrapped", fmt.Errorf("list: %w", &googleapi.Error{Code: 404}), utils.ErrCodeFileNotFound, false},
		{"transport", &url.Error{Op: "Get", URL: "https://x", Err: stderrors.New("connection refused")}, utils.ErrCodeNetworkError, true},
		{"timeout", &url.Error{Op: "Get", URL: "https://x", Err: timeoutErr{}}, utils.ErrCodeTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyGoogleAPIError(tt.err, testReqCtx, logging.NewNoOpLogger())
			if code := utils.ErrorCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
			if utils.IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v, want %v", utils.IsRetryable(err), tt.retryable)
			}
			if !stderrors.Is(err, tt.err) {
				t.Error("classified error does not wrap the original")
			}
		})
	}
}

func TestClassifyGoogleAPIError_RetryAfter(t *testing.T) {
	raw := &googleapi.Error{Code: 429, Header: http.Header{"Retry-After": []string{"7"}}}
	err := ClassifyGoogleAPIError(raw, testReqCtx, logging.NewNoOpLogger())

	var appErr *utils.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatalf("not an AppError: %v", err)
	}
	if got := appErr.CLIError.Context[utils.RetryAfterKey]; got != 7 {
		t.Errorf("retry after = %v, want 7", got)
	}
	if appErr.CLIError.HTTPStatus != 429 {
		t.Errorf("HTTPStatus = %d", appErr.CLIError.HTTPStatus)
	}
}

func TestClassifyDropboxError(t *testing.T) {
	tests := []struct {
		summary   string
		wantCode  string
		retryable bool
	}{
		{"expired_access_token/..", utils.ErrCodeAuthExpired, false},
		{"invalid_access_token/...", utils.ErrCodeAuthInvalid, false},
		{"path/not_found/..", utils.ErrCodeFileNotFound, false},
		{"path/malformed_path/.", utils.ErrCodeInvalidPath, false},
		{"path/not_folder/..", utils.ErrCodeInvalidPath, false},
		{"path/restricted_content/", utils.ErrCodePermissionDenied, false},
		{"too_many_requests/..", utils.ErrCodeRateLimited, true},
		{"too_many_write_operations/", utils.ErrCodeRateLimited, true},
		{"internal_error/", utils.ErrCodeNetworkError, true},
		{"reset/..", utils.ErrCodeUnknown, false},
		{"read tcp 10.0.0.1:443: connection reset by peer", utils.ErrCodeNetworkError, true},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			err := ClassifyDropboxError(stderrors.New(tt.summary), testReqCtx, logging.NewNoOpLogger())
			if code := utils.ErrorCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
			if utils.IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v, want %v", utils.IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestClassifyDropboxError_AuthSuggestsAction(t *testing.T) {
	err := ClassifyDropboxError(stderrors.New("expired_access_token/"), testReqCtx, logging.NewNoOpLogger())
	var appErr *utils.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatal("not an AppError")
	}
	if appErr.CLIError.Context["suggestedAction"] == nil {
		t.Error("missing suggestedAction")
	}
	if appErr.CLIError.Context["path"] != "/photos" {
		t.Errorf("path context = %v", appErr.CLIError.Context["path"])
	}
}

func TestClassifyBlobError(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	_, notFound := bucket.NewReader(ctx, "missing.txt", nil)
	if notFound == nil {
		t.Fatal("expected error reading a missing key")
	}

	tests := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{"not found", notFound, utils.ErrCodeFileNotFound, false},
		{"plain error", stderrors.New("dial tcp: connection refused"), utils.ErrCodeNetworkError, true},
		{"deadline", context.DeadlineExceeded, utils.ErrCodeTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyBlobError(tt.err, testReqCtx, logging.NewNoOpLogger())
			if code := utils.ErrorCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s (err=%v)", code, tt.wantCode, err)
			}
			if utils.IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v, want %v", utils.IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestClassifiersKeepAppErrors(t *testing.T) {
	local := utils.LocalIOError("write", "a.txt", stderrors.New("disk full"))
	for name, classify := range map[string]func(error, *types.RequestContext, logging.Logger) error{
		"gdrive":  ClassifyGoogleAPIError,
		"dropbox": ClassifyDropboxError,
		"blob":    ClassifyBlobError,
	} {
		if got := classify(local, testReqCtx, logging.NewNoOpLogger()); got != local {
			t.Errorf("%s: AppError was reclassified to %v", name, got)
		}
	}
}
