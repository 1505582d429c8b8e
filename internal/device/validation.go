package device

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ValidateInteger parses raw as a whole number (surrounding whitespace and
// a leading sign allowed). When bounds is non-nil the value must also lie
// within it. The boolean is false on any failure; it never panics.
func ValidateInteger(raw string, bounds *Bounds) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	if bounds != nil && !bounds.Contains(v) {
		return 0, false
	}
	return v, true
}

// ValidateAddress accepts an IPv4 or IPv6 literal. Host names, CIDR
// prefixes and zoned IPv6 addresses are rejected.
func ValidateAddress(raw string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || addr.Zone() != "" {
		return netip.Addr{}, false
	}
	return addr, true
}

// ParseControlInput validates a submission against limits and the device
// registry. Device and channel are checked first; the returned error is a
// *ValidationError for the first failing field.
//
// When only the volume fails, the returned request is still complete for
// the channel (Volume nil) alongside a FieldVolume error, so callers can
// decide whether the volume matters for the target device.
func ParseControlInput(in ControlInput, limits Limits, reg *Registry) (ControlRequest, error) {
	dev, err := reg.Lookup(in.Device)
	if err != nil {
		return ControlRequest{}, &ValidationError{Field: FieldDevice, Value: in.Device, Reason: "is not a configured device"}
	}
	if !dev.Address.IsValid() {
		return ControlRequest{}, &ValidationError{Field: FieldAddress, Value: dev.Address.String(), Reason: "is not a valid IP address"}
	}

	cb := limits.ChannelBounds()
	ch, ok := ValidateInteger(in.Channel, &cb)
	if !ok {
		return ControlRequest{}, &ValidationError{
			Field:  FieldChannel,
			Value:  in.Channel,
			Reason: fmt.Sprintf("must be a whole number between %d and %d", cb.Min, cb.Max),
		}
	}

	req := ControlRequest{Device: dev, Channel: ch}

	if strings.TrimSpace(in.Volume) == "" {
		return req, nil
	}

	vb := limits.VolumeBounds()
	vol, ok := ValidateInteger(in.Volume, &vb)
	if !ok {
		return req, &ValidationError{
			Field:  FieldVolume,
			Value:  in.Volume,
			Reason: fmt.Sprintf("must be a whole number between %d and %d", vb.Min, vb.Max),
		}
	}
	req.Volume = &vol
	return req, nil
}
