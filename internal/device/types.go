package device

import (
	"net/netip"

	"github.com/nerrad567/jap-panel/internal/infrastructure/config"
)

// Device is a configured JAP unit. Name is unique within the registry and
// Address has already passed ValidateAddress.
type Device struct {
	Name    string     `json:"name"`
	Address netip.Addr `json:"address"`
}

// State is the live view of a device, rebuilt on every read.
// Channel and Volume hold defaults when the device could not be read.
type State struct {
	Device         Device `json:"device"`
	Channel        int    `json:"channel"`
	Volume         int    `json:"volume"`
	SupportsVolume bool   `json:"supports_volume"`
}

// ControlInput is an operator submission before validation.
// An empty Volume means no volume change was requested.
type ControlInput struct {
	Device  string `json:"device"`
	Channel string `json:"channel"`
	Volume  string `json:"volume,omitempty"`
}

// ControlRequest is a validated submission. It is only produced by
// ParseControlInput, so every value in it is within bounds.
type ControlRequest struct {
	Device  Device
	Channel int
	Volume  *int // nil when no volume was supplied
}

// CommandResult is the outcome of one sub-command (channel or volume).
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Outcome classifies a whole submission.
type Outcome string

// Outcomes of a submission.
const (
	OutcomeRejected       Outcome = "rejected"
	OutcomeFullSuccess    Outcome = "full_success"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeFailed         Outcome = "failed"
)

// Report aggregates the results of one submission for presentation.
// Success is true only for OutcomeFullSuccess.
type Report struct {
	Device  string         `json:"device"`
	Outcome Outcome        `json:"outcome"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Channel *CommandResult `json:"channel,omitempty"`
	Volume  *CommandResult `json:"volume,omitempty"`
}

// Bounds is an inclusive integer range.
type Bounds struct {
	Min int
	Max int
}

// Contains reports whether v lies within b.
func (b Bounds) Contains(v int) bool {
	return v >= b.Min && v <= b.Max
}

// Limits are the control bounds shared by every device.
type Limits struct {
	MaxChannels int
	MinVolume   int
	MaxVolume   int
	VolumeStep  int
}

// LimitsFromConfig extracts the control bounds from the JAP section.
func LimitsFromConfig(cfg config.JAPConfig) Limits {
	return Limits{
		MaxChannels: cfg.MaxChannels,
		MinVolume:   cfg.MinVolume,
		MaxVolume:   cfg.MaxVolume,
		VolumeStep:  cfg.VolumeStep,
	}
}

// ChannelBounds returns the selectable channel range, starting at 1.
func (l Limits) ChannelBounds() Bounds {
	return Bounds{Min: 1, Max: l.MaxChannels}
}

// VolumeBounds returns the accepted volume range.
func (l Limits) VolumeBounds() Bounds {
	return Bounds{Min: l.MinVolume, Max: l.MaxVolume}
}

// ChannelOptions lists every selectable channel in ascending order.
func (l Limits) ChannelOptions() []int {
	opts := make([]int, 0, l.MaxChannels)
	for ch := 1; ch <= l.MaxChannels; ch++ {
		opts = append(opts, ch)
	}
	return opts
}

// VolumeOptions lists the volume selector values from MinVolume to
// MaxVolume in VolumeStep increments. MaxVolume is always included.
func (l Limits) VolumeOptions() []int {
	step := l.VolumeStep
	if step < 1 {
		step = 1
	}
	var opts []int
	for v := l.MinVolume; v <= l.MaxVolume; v += step {
		opts = append(opts, v)
	}
	if len(opts) > 0 && opts[len(opts)-1] != l.MaxVolume {
		opts = append(opts, l.MaxVolume)
	}
	return opts
}
