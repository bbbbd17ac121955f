// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrCancelled is returned when the request context is cancelled. It is
// distinct from every *TransportError so callers can tell a user stop from a
// failure.
var ErrCancelled = errors.New("stream cancelled")

// ErrorKind categorizes transport failures for logging and handling.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindRequest
	ErrKindConnection
	ErrKindStatus
	ErrKindRead
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindRequest:
		return "request"
	case ErrKindConnection:
		return "connection"
	case ErrKindStatus:
		return "status"
	case ErrKindRead:
		return "read"
	default:
		return "unknown"
	}
}

// TransportError is any non-cancellation failure of the chat stream.
type TransportError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// statusMessages maps provider status codes to readable causes.
var statusMessages = map[int]string{
	http.StatusUnauthorized:        "API key is invalid or expired",
	http.StatusNotFound:            "endpoint not found, check that the base URL includes the API version path",
	http.StatusTooManyRequests:     "quota exhausted or rate limited",
	http.StatusInternalServerError: "provider internal server error",
	http.StatusServiceUnavailable:  "service unavailable, check the model name",
	http.StatusGatewayTimeout:      "upstream request timed out",
}

// StatusMessage returns a readable description of an HTTP status code.
func StatusMessage(code int, body string) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	body = strings.TrimSpace(body)
	if len(body) > 100 {
		body = body[:100]
	}
	return fmt.Sprintf("HTTP %d: %s", code, body)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport opens a streaming chat request. Cancelling ctx is the single
// cancellation entry point: it aborts the request, closes the response body
// and makes the pending Next return ErrCancelled.
type Transport interface {
	Open(ctx context.Context, req ChatRequest) (ChunkReader, error)
}

// Config holds the HTTP transport settings.
type Config struct {
	// URL is the full chat endpoint (e.g., http://127.0.0.1:5000/api/chat)
	URL string

	// ConnectTimeout bounds dialing only. No read or idle timeout is applied.
	ConnectTimeout time.Duration

	// ChunkSize is the read buffer size (default: 4KB)
	ChunkSize int
}

// HTTPTransport streams chat replies over HTTP.
type HTTPTransport struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPTransport creates an HTTP transport. A nil logger disables logging.
func NewHTTPTransport(cfg Config, logger *zap.Logger) *HTTPTransport {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	httpTransport := http.DefaultTransport.(*http.Transport).Clone()
	httpTransport.DialContext = dialer.DialContext

	return &HTTPTransport{
		config: cfg,
		// Streaming client: no Timeout, cancellation comes from the context.
		httpClient: &http.Client{Transport: httpTransport},
		logger:     logger,
	}
}

// Open sends the request and returns a reader over the response body.
func (t *HTTPTransport) Open(ctx context.Context, req ChatRequest) (ChunkReader, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Kind: ErrKindRequest, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Kind: ErrKindRequest, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, &TransportError{Kind: ErrKindConnection, Message: "failed to reach assistant service", Cause: err}
	}

	t.logger.Debug("stream opened",
		zap.String("url", t.config.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &TransportError{
			Kind:       ErrKindStatus,
			StatusCode: resp.StatusCode,
			Message:    StatusMessage(resp.StatusCode, string(errBody)),
		}
	}

	return newHTTPStream(ctx, resp.Body, t.config.ChunkSize), nil
}

// =============================================================================
// HTTP STREAM
// =============================================================================

// httpStream reads raw chunks from a response body.
type httpStream struct {
	ctx       context.Context
	body      io.ReadCloser
	buf       []byte
	pending   error
	stopWatch func() bool
	closeOnce sync.Once
}

func newHTTPStream(ctx context.Context, body io.ReadCloser, chunkSize int) *httpStream {
	s := &httpStream{
		ctx:  ctx,
		body: body,
		buf:  make([]byte, chunkSize),
	}
	// Release the connection as soon as the context is cancelled, which also
	// unblocks a Read in progress.
	s.stopWatch = context.AfterFunc(ctx, func() {
		s.closeBody()
	})
	return s
}

// Next returns the next chunk of the response body.
func (s *httpStream) Next() ([]byte, error) {
	if s.ctx.Err() != nil {
		return nil, ErrCancelled
	}
	if s.pending != nil {
		return nil, s.pending
	}

	n, err := s.body.Read(s.buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, s.buf[:n])
		if err != nil {
			s.pending = s.classify(err)
		}
		return chunk, nil
	}
	if err == nil {
		return []byte{}, nil
	}
	return nil, s.classify(err)
}

// classify maps a body read error to EOF, ErrCancelled or a TransportError.
func (s *httpStream) classify(err error) error {
	if s.ctx.Err() != nil {
		return ErrCancelled
	}
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return &TransportError{Kind: ErrKindRead, Message: "stream read failed", Cause: err}
}

// Close releases the response body. Safe to call multiple times.
func (s *httpStream) Close() error {
	s.stopWatch()
	s.closeBody()
	return nil
}

func (s *httpStream) closeBody() {
	s.closeOnce.Do(func() {
		s.body.Close()
	})
}
