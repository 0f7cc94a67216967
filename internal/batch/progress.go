package batch

import "sync/atomic"

// ProgressFunc receives the completion fraction in [0, 1]. It is invoked at
// least once per completed page-unit, possibly from concurrent workers, and
// reaches exactly 1.0 once when the last unit completes.
type ProgressFunc func(fraction float64)

// progressState is the run's shared completion counter: a fixed up-front
// total and an atomically incremented completed count. completed never
// exceeds total because every page-unit steps exactly once.
type progressState struct {
	total     int64
	completed atomic.Int64
	onUpdate  ProgressFunc
}

func newProgressState(total int, onUpdate ProgressFunc) *progressState {
	return &progressState{total: int64(total), onUpdate: onUpdate}
}

// step records one completed page-unit and reports the new fraction.
func (p *progressState) step() {
	done := p.completed.Add(1)
	if p.onUpdate != nil {
		p.onUpdate(float64(done) / float64(p.total))
	}
}

// finish reports completion directly for runs with no page-units, so the
// sink still sees 1.0 exactly once.
func (p *progressState) finish() {
	if p.onUpdate != nil {
		p.onUpdate(1.0)
	}
}
