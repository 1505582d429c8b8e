package control

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/jap-panel/internal/device"
)

// RenderState reads the live state of dev. It never fails: unreachable or
// misbehaving devices yield channel 1, the minimum volume and no volume
// support. Volume is only read from devices that support it.
func (s *Service) RenderState(ctx context.Context, dev device.Device) device.State {
	state := device.State{
		Device:  dev,
		Channel: s.client.GetChannel(ctx, dev.Address),
		Volume:  s.limits.MinVolume,
	}
	if s.client.SupportsVolume(ctx, dev.Address) {
		state.SupportsVolume = true
		state.Volume = s.client.GetVolume(ctx, dev.Address)
	}

	s.stats.renders.Add(1)
	s.notifyState(state)
	return state
}

// RenderDevice renders the configured device called name.
func (s *Service) RenderDevice(ctx context.Context, name string) (device.State, error) {
	dev, err := s.registry.Lookup(name)
	if err != nil {
		return device.State{}, err
	}
	return s.RenderState(ctx, dev), nil
}

// RenderAll renders every configured device. Reads run concurrently, at
// most RenderConcurrency at a time; the result keeps configuration order.
func (s *Service) RenderAll(ctx context.Context) []device.State {
	devices := s.registry.List()
	states := make([]device.State, len(devices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.renderConcurrency)
	for i, dev := range devices {
		i, dev := i, dev
		g.Go(func() error {
			states[i] = s.RenderState(gctx, dev)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // RenderState never fails

	return states
}
