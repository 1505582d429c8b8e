package control

import (
	"context"
	"net/netip"
	"sync"

	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/device"
)

const defaultRenderConcurrency = 8

// DeviceClient is the subset of *jap.Client the service drives.
type DeviceClient interface {
	GetChannel(ctx context.Context, addr netip.Addr) int
	GetVolume(ctx context.Context, addr netip.Addr) int
	SupportsVolume(ctx context.Context, addr netip.Addr) bool
	SetChannel(ctx context.Context, addr netip.Addr, ch int) (bool, error)
	SetVolume(ctx context.Context, addr netip.Addr, v int) (bool, error)
}

// Listener is notified after each rendered state and each submission.
// Calls are made synchronously; implementations must not block.
type Listener interface {
	StateRefreshed(state device.State)
	ControlApplied(report device.Report)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Service.
type Options struct {
	Client   DeviceClient
	Registry *device.Registry
	Limits   device.Limits

	// Audit records every submission. Optional.
	Audit audit.Repository

	// RenderConcurrency bounds parallel reads in RenderAll. Defaults to 8.
	RenderConcurrency int

	Logger Logger
}

// Service renders device state and applies control submissions.
//
// Thread Safety: all methods are safe for concurrent use. The service keeps
// no device state between calls; only counters and listeners are shared.
type Service struct {
	client            DeviceClient
	registry          *device.Registry
	limits            device.Limits
	audit             audit.Repository
	renderConcurrency int
	logger            Logger

	mu        sync.RWMutex
	listeners []Listener

	stats stats
}

// NewService creates a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}

	s := &Service{
		client:            opts.Client,
		registry:          opts.Registry,
		limits:            opts.Limits,
		audit:             opts.Audit,
		renderConcurrency: opts.RenderConcurrency,
		logger:            opts.Logger,
	}
	if s.renderConcurrency < 1 {
		s.renderConcurrency = defaultRenderConcurrency
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s, nil
}

// AddListener registers l for state and control notifications.
func (s *Service) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Registry returns the configured devices.
func (s *Service) Registry() *device.Registry {
	return s.registry
}

// Limits returns the channel and volume bounds.
func (s *Service) Limits() device.Limits {
	return s.limits
}

func (s *Service) snapshotListeners() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Listener(nil), s.listeners...)
}

func (s *Service) notifyState(state device.State) {
	for _, l := range s.snapshotListeners() {
		l.StateRefreshed(state)
	}
}

func (s *Service) notifyControl(report device.Report) {
	for _, l := range s.snapshotListeners() {
		l.ControlApplied(report)
	}
}
