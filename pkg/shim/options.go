package shim

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Provider token endpoints get bounded connect/read time; a timeout surfaces
// as an Error outcome and is never retried inside this subsystem.
const defaultHTTPTimeout = 10 * time.Second

type adapterOptions struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// AdapterOption configures a protocol adapter during construction.
type AdapterOption func(*adapterOptions)

// WithHTTPClient overrides the HTTP client used for provider calls. Tests
// point this at local mock endpoints.
func WithHTTPClient(c *http.Client) AdapterOption {
	return func(o *adapterOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithAdapterLogger configures the adapter's logger.
func WithAdapterLogger(l *slog.Logger) AdapterOption {
	return func(o *adapterOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func defaultAdapterOptions() adapterOptions {
	return adapterOptions{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
