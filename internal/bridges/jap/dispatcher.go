package jap

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/nerrad567/jap-panel/internal/device"
)

// commandAck is the data value a device returns when it accepts a command.
const commandAck = "OK"

// SetChannel switches the device to ch.
//
// It returns true only when the device acknowledges with "OK". Device
// failures (transport, status, body) are logged and reported as false with
// a nil error. A non-nil error means the caller passed an invalid address
// or an out-of-range channel and nothing was sent.
func (c *Client) SetChannel(ctx context.Context, addr netip.Addr, ch int) (bool, error) {
	if err := checkCommand(addr, ch, c.limits.ChannelBounds()); err != nil {
		return false, fmt.Errorf("set channel: %w", err)
	}
	return c.command(ctx, addr, EndpointSetChannel, "channel", ch), nil
}

// SetVolume sets the device's stereo volume to v. Results follow SetChannel.
// Callers must check SupportsVolume first.
func (c *Client) SetVolume(ctx context.Context, addr netip.Addr, v int) (bool, error) {
	if err := checkCommand(addr, v, c.limits.VolumeBounds()); err != nil {
		return false, fmt.Errorf("set volume: %w", err)
	}
	return c.command(ctx, addr, EndpointSetVolume, "volume", v), nil
}

func checkCommand(addr netip.Addr, v int, b device.Bounds) error {
	if !addr.IsValid() || addr.Zone() != "" {
		return fmt.Errorf("%w: invalid address %q", ErrInvariantViolation, addr.String())
	}
	if !b.Contains(v) {
		return fmt.Errorf("%w: value %d outside [%d, %d]", ErrInvariantViolation, v, b.Min, b.Max)
	}
	return nil
}

func (c *Client) command(ctx context.Context, addr netip.Addr, endpoint, field string, v int) bool {
	body, err := c.Call(ctx, Request{
		Address:     addr,
		Method:      http.MethodPost,
		Endpoint:    endpoint,
		Body:        []byte(strconv.Itoa(v)),
		ContentType: ContentTypeText,
	})
	if err == nil {
		var ack string
		ack, err = parseStringData(endpoint, body)
		if err == nil && ack == commandAck {
			c.logger.Debug(field+" updated", "address", addr.String(), "value", v)
			return true
		}
		if err == nil {
			c.logger.Warn(field+" update not acknowledged",
				"address", addr.String(), "value", v, "response", ack)
			return false
		}
	}

	c.logger.Error(field+" update failed", "address", addr.String(), "value", v, "error", err)
	return false
}
