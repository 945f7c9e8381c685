package logging

import (
	"net/http"
	"time"
)

// DebugTransport logs every HTTP round trip at DEBUG level.
// Query strings are dropped and headers are never logged.
type DebugTransport struct {
	Base   http.RoundTripper
	Logger Logger
}

// NewDebugTransport wraps base (http.DefaultTransport when nil)
func NewDebugTransport(base http.RoundTripper, logger Logger) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &DebugTransport{Base: base, Logger: logger}
}

// RoundTrip implements http.RoundTripper
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := t.Logger.WithContext(req.Context())
	target := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	start := time.Now()
	resp, err := t.Base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		logger.Debug("HTTP request failed",
			F("method", req.Method),
			F("url", target),
			F("duration_ms", duration.Milliseconds()),
			F("error", err.Error()),
		)
		return nil, err
	}

	logger.Debug("HTTP request",
		F("method", req.Method),
		F("url", target),
		F("status", resp.StatusCode),
		F("duration_ms", duration.Milliseconds()),
	)
	return resp, nil
}

// NewDebugLoggerWithTransport builds a logger and, when debug is enabled,
// a DebugTransport bound to it
func NewDebugLoggerWithTransport(config LogConfig) (Logger, *DebugTransport, error) {
	logger, err := NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if !config.EnableDebug {
		return logger, nil, nil
	}
	return logger, NewDebugTransport(nil, logger), nil
}
