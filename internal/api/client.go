package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
	"github.com/google/uuid"
)

// Classifier turns a raw backend error into an *utils.AppError
type Classifier func(err error, reqCtx *types.RequestContext, logger logging.Logger) error

// Client carries the retry policy and error classification shared by the
// storage backends
type Client struct {
	backend    string
	profile    string
	classify   Classifier
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logger     logging.Logger
}

// ClientOptions configures NewClient
type ClientOptions struct {
	Backend      string
	Profile      string
	Classifier   Classifier
	MaxRetries   int
	RetryDelayMs int
	// AttemptTimeout bounds each listing attempt; zero means no bound
	AttemptTimeout time.Duration
	Logger         logging.Logger
}

// NewClient creates a new API client
func NewClient(opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = logging.NewNoOpLogger()
	}
	if opts.Classifier == nil {
		opts.Classifier = passThrough
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{
		backend:    opts.Backend,
		profile:    opts.Profile,
		classify:   opts.Classifier,
		maxRetries: opts.MaxRetries,
		retryDelay: time.Duration(opts.RetryDelayMs) * time.Millisecond,
		timeout:    opts.AttemptTimeout,
		logger:     opts.Logger,
	}
}

// Logger returns the client's logger
func (c *Client) Logger() logging.Logger {
	return c.logger
}

// Backend returns the backend name the client was built for
func (c *Client) Backend() string {
	return c.backend
}

// NewRequestContext creates a request context with a fresh trace ID
func (c *Client) NewRequestContext(ctx context.Context, requestType types.RequestType, remotePath string) *types.RequestContext {
	traceID := logging.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return &types.RequestContext{
		Profile:     c.profile,
		Backend:     c.backend,
		RemotePath:  remotePath,
		RequestType: requestType,
		TraceID:     traceID,
	}
}

// ExecuteWithRetry runs fn until it succeeds, fails with a non-retryable
// error, or exhausts the retry budget. Errors are returned classified.
// A cancelled ctx returns ctx.Err() unchanged. fn receives the context
// for the current attempt.
func ExecuteWithRetry[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	logger := client.logger.WithTraceID(reqCtx.TraceID)
	logger.Debug("API operation starting",
		logging.F("requestType", reqCtx.RequestType),
		logging.F("backend", reqCtx.Backend),
		logging.F("path", reqCtx.RemotePath),
	)

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= client.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := runAttempt(ctx, client, reqCtx, fn)
		if err == nil {
			logger.Debug("API operation completed",
				logging.F("duration_ms", time.Since(start).Milliseconds()),
				logging.F("attempts", attempt+1),
			)
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		lastErr = client.classify(err, reqCtx, logger)
		if !utils.IsRetryable(lastErr) {
			logger.Debug("API operation failed (non-retryable)",
				logging.F("duration_ms", time.Since(start).Milliseconds()),
				logging.F("error", lastErr.Error()),
				logging.F("attempts", attempt+1),
			)
			return zero, lastErr
		}

		if attempt < client.maxRetries {
			delay := calculateBackoff(client.retryDelay, attempt, lastErr)
			logger.Warn("API operation failed (retryable)",
				logging.F("path", reqCtx.RemotePath),
				logging.F("attempt", attempt+1),
				logging.F("delay_ms", delay.Milliseconds()),
				logging.F("error", lastErr.Error()),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	logger.Error("API operation failed after max retries",
		logging.F("path", reqCtx.RemotePath),
		logging.F("duration_ms", time.Since(start).Milliseconds()),
		logging.F("attempts", client.maxRetries+1),
		logging.F("error", lastErr.Error()),
	)
	return zero, lastErr
}

// runAttempt calls fn once. Listing and resolve attempts run under the
// client's attempt timeout, one page per attempt. Downloads do not: the
// reader they return outlives the call.
func runAttempt[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func(ctx context.Context) (T, error)) (T, error) {
	if client.timeout <= 0 || reqCtx.RequestType == types.RequestTypeDownload {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	result, err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && stderrors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		err = utils.WrapAppError(utils.NewCLIError(utils.ErrCodeTimeout,
			fmt.Sprintf("Request timed out after %s", client.timeout)).
			WithRetryable(true).
			WithContext("path", reqCtx.RemotePath).
			WithContext("traceId", reqCtx.TraceID).
			Build(), err)
	}
	return result, err
}

// calculateBackoff returns the server's retry-after hint when present,
// otherwise base * 2^attempt with ±25% jitter. Both are capped.
func calculateBackoff(baseDelay time.Duration, attempt int, err error) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond

	if hint, ok := retryAfter(err); ok {
		if hint > maxDelay {
			return maxDelay
		}
		return hint
	}

	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	jitterRange := delay / 4
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
	}
	return delay
}

func retryAfter(err error) (time.Duration, bool) {
	var appErr *utils.AppError
	if !stderrors.As(err, &appErr) {
		return 0, false
	}
	switch v := appErr.CLIError.Context[utils.RetryAfterKey].(type) {
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second, true
		}
	case int64:
		if v > 0 {
			return time.Duration(v) * time.Second, true
		}
	}
	return 0, false
}

// passThrough keeps AppErrors and treats anything else as a transient
// network failure
func passThrough(err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	var appErr *utils.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeNetworkError, err.Error()).
		WithRetryable(true).
		WithContext("traceId", reqCtx.TraceID).
		Build(), err)
}
