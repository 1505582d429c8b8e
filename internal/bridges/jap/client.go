package jap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/jap-panel/internal/device"
	"github.com/nerrad567/jap-panel/internal/infrastructure/config"
)

// Endpoints of the JAP device API, relative to /cgi-bin/api/.
const (
	EndpointChannel    = "details/channel"
	EndpointVolume     = "details/audio/stereo/volume"
	EndpointModel      = "details/device/model"
	EndpointSetChannel = "command/channel"
	EndpointSetVolume  = "command/audio/stereo/volume"
)

const (
	apiPathPrefix  = "/cgi-bin/api/"
	defaultPort    = 80
	defaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a device response is read.
	maxResponseBytes = 64 << 10

	// maxErrorBodySnippet caps response text kept in errors and logs.
	maxErrorBodySnippet = 512

	userAgent = "jappanel"
)

// Content types accepted by the device API.
const (
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CallStats describes one completed (or failed) device request.
type CallStats struct {
	Address    netip.Addr
	Method     string
	Endpoint   string
	StatusCode int // 0 when no response was received
	Duration   time.Duration
	Err        error
}

// CallObserver receives every device request made by a Client.
// Implementations must not block.
type CallObserver interface {
	ObserveCall(CallStats)
}

// Request is a single exchange with a device.
type Request struct {
	Address     netip.Addr
	Method      string
	Endpoint    string
	Body        []byte
	ContentType string // defaults to ContentTypeForm when Body is set
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Config supplies the timeout, port, bounds and volume allow-list.
	Config config.JAPConfig

	// HTTPClient overrides the default HTTP client (tests).
	HTTPClient *http.Client

	// Observer is notified after every request. Optional.
	Observer CallObserver

	// Logger receives read and command failures. Optional.
	Logger Logger
}

// Client talks to JAP devices over their local REST API.
//
// Reads degrade to defaults, capability checks fail closed and commands
// report success as a bool; only the raw Call method returns device errors.
//
// Thread Safety: all methods are safe for concurrent use. The client holds
// no per-device state.
type Client struct {
	http         *http.Client
	timeout      time.Duration
	port         int
	limits       device.Limits
	volumeModels map[string]struct{}
	observer     CallObserver
	logger       Logger
}

// NewClient creates a Client from opts.
func NewClient(opts ClientOptions) *Client {
	cfg := opts.Config

	c := &Client{
		http:         opts.HTTPClient,
		timeout:      cfg.Timeout,
		port:         cfg.Port,
		limits:       device.LimitsFromConfig(cfg),
		volumeModels: make(map[string]struct{}, len(cfg.VolumeModels)),
		observer:     opts.Observer,
		logger:       opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.port == 0 {
		c.port = defaultPort
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	for _, m := range cfg.VolumeModels {
		c.volumeModels[m] = struct{}{}
	}
	return c
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Limits returns the control bounds the client enforces.
func (c *Client) Limits() device.Limits {
	return c.limits
}

// URL returns the device API URL for endpoint on addr.
// IPv6 literals are bracketed; the port is omitted when it is 80.
func (c *Client) URL(addr netip.Addr, endpoint string) string {
	host := addr.String()
	switch {
	case c.port != defaultPort:
		host = netip.AddrPortFrom(addr, uint16(c.port)).String() //nolint:gosec // port validated by config
	case addr.Is6():
		host = "[" + host + "]"
	}
	u := url.URL{
		Scheme: "http",
		Host:   host,
		Path:   apiPathPrefix + strings.TrimPrefix(endpoint, "/"),
	}
	return u.String()
}

// Call performs one HTTP exchange and returns the raw response body.
//
// The exchange is bounded by the configured timeout on top of any deadline
// in ctx. Failures to complete the exchange return *TransportError and a
// status of 400 or above returns *ProtocolError. The body is never parsed
// here and the call is never retried.
func (c *Client) Call(ctx context.Context, req Request) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stats := CallStats{Address: req.Address, Method: method, Endpoint: req.Endpoint}
	start := time.Now()
	body, status, err := c.do(ctx, method, req)
	stats.Duration = time.Since(start)
	stats.StatusCode = status
	stats.Err = err

	if c.observer != nil {
		c.observer.ObserveCall(stats)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, method string, req Request) ([]byte, int, error) {
	var reqBody io.Reader
	if req.Body != nil {
		reqBody = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.URL(req.Address, req.Endpoint), reqBody)
	if err != nil {
		return nil, 0, &TransportError{Address: req.Address, Endpoint: req.Endpoint, Err: err}
	}
	if req.Body != nil {
		ct := req.ContentType
		if ct == "" {
			ct = ContentTypeForm
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	httpReq.Header.Set("Accept", ContentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, &TransportError{Address: req.Address, Endpoint: req.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{
			Address:  req.Address,
			Endpoint: req.Endpoint,
			Err:      fmt.Errorf("reading response: %w", err),
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return body, resp.StatusCode, &ProtocolError{
			Address:    req.Address,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Body:       snippet(body),
		}
	}
	return body, resp.StatusCode, nil
}

func snippet(body []byte) string {
	if len(body) <= maxErrorBodySnippet {
		return string(body)
	}
	return string(body[:maxErrorBodySnippet]) + "..."
}
