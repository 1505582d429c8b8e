package jap

import (
	"context"
	"net/http"
	"net/netip"
)

// Model returns the model string the device reports.
func (c *Client) Model(ctx context.Context, addr netip.Addr) (string, error) {
	body, err := c.Call(ctx, Request{Address: addr, Method: http.MethodGet, Endpoint: EndpointModel})
	if err != nil {
		return "", err
	}
	return parseStringData(EndpointModel, body)
}

// SupportsVolume reports whether the device's model is on the volume
// allow-list. Matching is exact and case-sensitive. Any failure to learn
// the model yields false, so volume is never offered for an unknown device.
func (c *Client) SupportsVolume(ctx context.Context, addr netip.Addr) bool {
	model, err := c.Model(ctx, addr)
	if err != nil {
		c.logger.Warn("model query failed, assuming no volume control",
			"address", addr.String(), "error", err)
		return false
	}
	return c.IsVolumeModel(model)
}

// IsVolumeModel reports whether model is on the volume allow-list.
func (c *Client) IsVolumeModel(model string) bool {
	_, ok := c.volumeModels[model]
	return ok
}
