package api

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/pkg/version"
)

// HTTPConfig configures NewHTTPClient
type HTTPConfig struct {
	// Token is sent as a bearer token when non-empty
	Token string
	// RequestTimeout bounds dialing, the TLS handshake and the wait for
	// response headers. Bodies are streamed without an overall deadline.
	RequestTimeout time.Duration
	// Debug logs each round trip through Logger
	Debug  bool
	Logger logging.Logger
}

// NewHTTPClient builds the HTTP client handed to the backend SDKs
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	base.TLSHandshakeTimeout = timeout
	base.ResponseHeaderTimeout = timeout
	base.MaxIdleConnsPerHost = 32

	var rt http.RoundTripper = &userAgentTransport{base: base, agent: version.UserAgent()}
	if cfg.Debug {
		rt = logging.NewDebugTransport(rt, cfg.Logger)
	}
	if cfg.Token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: cfg.Token,
				TokenType:   "Bearer",
			}),
			Base: rt,
		}
	}

	return &http.Client{Transport: rt}
}

// userAgentTransport sets User-Agent on requests that carry none
type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(clone)
}
