package influxdb

import (
	"context"
	"errors"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/jap-panel/internal/bridges/jap"
)

// measurementDeviceCall holds one point per device request.
const measurementDeviceCall = "device_call"

// Error kinds recorded in the error_kind field.
const (
	errorKindNone      = ""
	errorKindTimeout   = "timeout"
	errorKindTransport = "transport"
	errorKindProtocol  = "protocol"
	errorKindOther     = "other"
)

// ObserveCall implements jap.CallObserver by writing a device_call point.
func (c *Client) ObserveCall(stats jap.CallStats) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(callPoint(stats, time.Now()))
}

func callPoint(stats jap.CallStats, at time.Time) *write.Point {
	return write.NewPoint(
		measurementDeviceCall,
		map[string]string{
			"address":  stats.Address.String(),
			"method":   stats.Method,
			"endpoint": stats.Endpoint,
		},
		map[string]any{
			"duration_ms": float64(stats.Duration.Microseconds()) / 1000,
			"status_code": stats.StatusCode,
			"success":     stats.Err == nil,
			"error_kind":  errorKind(stats.Err),
		},
		at,
	)
}

func errorKind(err error) string {
	if err == nil {
		return errorKindNone
	}
	var transportErr *jap.TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout() {
			return errorKindTimeout
		}
		return errorKindTransport
	}
	var protocolErr *jap.ProtocolError
	if errors.As(err, &protocolErr) {
		return errorKindProtocol
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorKindTimeout
	}
	return errorKindOther
}
