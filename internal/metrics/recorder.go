package metrics

import (
	"strconv"
	"time"
)

// Recorder provides methods for recording metrics. A nil *Recorder is
// valid and records nothing, so callers never need to guard.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordSignal(action, outcome string) {
	if r == nil {
		return
	}
	SignalsTotal.WithLabelValues(action, outcome).Inc()
}

func (r *Recorder) RecordOrderPlaced(symbol, side string) {
	if r == nil {
		return
	}
	OrdersPlacedTotal.WithLabelValues(symbol, side).Inc()
}

func (r *Recorder) RecordVenueError(op string) {
	if r == nil {
		return
	}
	VenueErrorsTotal.WithLabelValues(op).Inc()
}

func (r *Recorder) RecordMonitorIteration(account string, d time.Duration) {
	if r == nil {
		return
	}
	MonitorIterationsTotal.WithLabelValues(account).Inc()
	MonitorIterationSeconds.Observe(d.Seconds())
}

func (r *Recorder) RecordStopEscalation(symbol string, tier int) {
	if r == nil {
		return
	}
	StopEscalationsTotal.WithLabelValues(symbol, strconv.Itoa(tier)).Inc()
}

func (r *Recorder) RecordTrailingClose(symbol string) {
	if r == nil {
		return
	}
	TrailingClosesTotal.WithLabelValues(symbol).Inc()
}
