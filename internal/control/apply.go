package control

import (
	"context"
	"errors"
	"net/netip"
	"strings"

	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/device"
)

// Per-field result messages shown to the operator.
const (
	msgChannelUpdated = "Channel: Successfully updated\n"
	msgChannelFailed  = "Channel: Update failed\n"
	msgVolumeUpdated  = "Volume: Successfully updated\n"
	msgVolumeFailed   = "Volume: Update failed\n"

	invalidInputPrefix = "Invalid input: "
)

// ApplyControl validates in and, when it is valid, sends it to the device.
// source identifies the surface the submission came through (see the audit
// Source constants).
//
// The channel is always sent first. The volume is sent afterwards only when
// one was supplied and a fresh capability check says the device supports
// it. An invalid volume rejects the submission for volume-capable devices
// and is ignored for the rest, since those never receive a volume.
//
// ApplyControl never fails; the outcome is carried in the report.
func (s *Service) ApplyControl(ctx context.Context, in device.ControlInput, source string) device.Report {
	req, err := device.ParseControlInput(in, s.limits, s.registry)
	if err != nil {
		var verr *device.ValidationError
		if !errors.As(err, &verr) || verr.Field != device.FieldVolume || s.client.SupportsVolume(ctx, req.Device.Address) {
			return s.finish(ctx, in, source, s.reject(in, err))
		}
		s.logger.Info("ignoring volume for device without volume support",
			"device", req.Device.Name, "value", in.Volume)
	}

	return s.finish(ctx, in, source, s.dispatch(ctx, req))
}

func (s *Service) reject(in device.ControlInput, err error) device.Report {
	s.logger.Warn("control input rejected",
		"device", in.Device, "channel", in.Channel, "volume", in.Volume, "error", err)
	return device.Report{
		Device:  strings.TrimSpace(in.Device),
		Outcome: device.OutcomeRejected,
		Message: invalidInputPrefix + err.Error(),
	}
}

func (s *Service) dispatch(ctx context.Context, req device.ControlRequest) device.Report {
	addr := req.Device.Address
	report := device.Report{Device: req.Device.Name}

	report.Channel = s.send(ctx, req, device.FieldChannel, req.Channel,
		s.client.SetChannel, msgChannelUpdated, msgChannelFailed)

	if req.Volume != nil && s.client.SupportsVolume(ctx, addr) {
		report.Volume = s.send(ctx, req, device.FieldVolume, *req.Volume,
			s.client.SetVolume, msgVolumeUpdated, msgVolumeFailed)
	}

	var msg strings.Builder
	attempted, succeeded := 0, 0
	for _, r := range []*device.CommandResult{report.Channel, report.Volume} {
		if r == nil {
			continue
		}
		attempted++
		if r.Success {
			succeeded++
		}
		msg.WriteString(r.Message)
	}
	report.Message = msg.String()

	switch succeeded {
	case attempted:
		report.Outcome = device.OutcomeFullSuccess
		report.Success = true
	case 0:
		report.Outcome = device.OutcomeFailed
	default:
		report.Outcome = device.OutcomePartialSuccess
	}
	return report
}

type setFunc func(ctx context.Context, addr netip.Addr, v int) (bool, error)

func (s *Service) send(ctx context.Context, req device.ControlRequest, field string, v int, set setFunc, okMsg, failMsg string) *device.CommandResult {
	ok, err := set(ctx, req.Device.Address, v)
	if err != nil {
		s.logger.Error("command refused",
			"device", req.Device.Name, "field", field, "value", v, "error", err)
	}
	if ok {
		return &device.CommandResult{Success: true, Message: okMsg}
	}
	return &device.CommandResult{Message: failMsg}
}

// finish counts, records and announces a report.
func (s *Service) finish(ctx context.Context, in device.ControlInput, source string, report device.Report) device.Report {
	s.stats.count(report.Outcome)

	if report.Outcome != device.OutcomeRejected {
		s.logger.Info("control applied",
			"device", report.Device, "outcome", string(report.Outcome), "source", source)
	}

	if s.audit != nil {
		entry := &audit.Entry{
			Action:     audit.ActionControl,
			EntityType: audit.EntityDevice,
			EntityID:   report.Device,
			Source:     source,
			Details: map[string]any{
				"channel": in.Channel,
				"volume":  in.Volume,
				"outcome": string(report.Outcome),
				"message": report.Message,
			},
		}
		if err := s.audit.Create(ctx, entry); err != nil {
			s.logger.Error("recording control audit entry", "device", report.Device, "error", err)
		}
	}

	s.notifyControl(report)
	return report
}
