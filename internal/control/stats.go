package control

import (
	"sync/atomic"

	"github.com/nerrad567/jap-panel/internal/device"
)

type stats struct {
	renders        atomic.Uint64
	rejected       atomic.Uint64
	fullSuccess    atomic.Uint64
	partialSuccess atomic.Uint64
	failed         atomic.Uint64
}

// Stats are cumulative counters since the service started.
type Stats struct {
	Renders        uint64 `json:"renders"`
	Rejected       uint64 `json:"rejected"`
	FullSuccess    uint64 `json:"full_success"`
	PartialSuccess uint64 `json:"partial_success"`
	Failed         uint64 `json:"failed"`
}

// Stats returns a snapshot of the service counters.
func (s *Service) Stats() Stats {
	return Stats{
		Renders:        s.stats.renders.Load(),
		Rejected:       s.stats.rejected.Load(),
		FullSuccess:    s.stats.fullSuccess.Load(),
		PartialSuccess: s.stats.partialSuccess.Load(),
		Failed:         s.stats.failed.Load(),
	}
}

func (s *stats) count(o device.Outcome) {
	switch o {
	case device.OutcomeRejected:
		s.rejected.Add(1)
	case device.OutcomeFullSuccess:
		s.fullSuccess.Add(1)
	case device.OutcomePartialSuccess:
		s.partialSuccess.Add(1)
	case device.OutcomeFailed:
		s.failed.Add(1)
	}
}
