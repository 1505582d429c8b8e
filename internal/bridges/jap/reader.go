package jap

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"

	"github.com/nerrad567/jap-panel/internal/device"
)

// DefaultChannel is shown when a device's channel cannot be read.
const DefaultChannel = 1

// ReadChannel returns the device's current channel or the failure.
// A channel outside 1..MaxChannels is reported as a *ParseError.
func (c *Client) ReadChannel(ctx context.Context, addr netip.Addr) (int, error) {
	return c.readInt(ctx, addr, EndpointChannel, c.limits.ChannelBounds())
}

// ReadVolume returns the device's current stereo volume or the failure.
// A volume outside MinVolume..MaxVolume is reported as a *ParseError.
func (c *Client) ReadVolume(ctx context.Context, addr netip.Addr) (int, error) {
	return c.readInt(ctx, addr, EndpointVolume, c.limits.VolumeBounds())
}

// GetChannel returns the device's current channel, or DefaultChannel when
// the device cannot be reached or answers with something unusable.
// The failure is logged; it never escapes.
func (c *Client) GetChannel(ctx context.Context, addr netip.Addr) int {
	ch, err := c.ReadChannel(ctx, addr)
	if err != nil {
		c.logger.Warn("channel read failed, using default",
			"address", addr.String(), "default", DefaultChannel, "error", err)
		return DefaultChannel
	}
	return ch
}

// GetVolume returns the device's current volume, or the configured
// minimum volume when it cannot be read. The failure is logged.
func (c *Client) GetVolume(ctx context.Context, addr netip.Addr) int {
	v, err := c.ReadVolume(ctx, addr)
	if err != nil {
		c.logger.Warn("volume read failed, using default",
			"address", addr.String(), "default", c.limits.MinVolume, "error", err)
		return c.limits.MinVolume
	}
	return v
}

func (c *Client) readInt(ctx context.Context, addr netip.Addr, endpoint string, bounds device.Bounds) (int, error) {
	body, err := c.Call(ctx, Request{Address: addr, Method: http.MethodGet, Endpoint: endpoint})
	if err != nil {
		return 0, err
	}
	v, err := parseIntData(endpoint, body)
	if err != nil {
		return 0, err
	}
	if !bounds.Contains(v) {
		return 0, &ParseError{
			Endpoint: endpoint,
			Body:     snippet(body),
			Err:      fmt.Errorf("%w: %d not in %d..%d", errOutOfRange, v, bounds.Min, bounds.Max),
		}
	}
	return v, nil
}
