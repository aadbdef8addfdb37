package profiler

import "time"

// ProfilerBuilderOption configures a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often a report is logged. Non-positive values keep the default.
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces the time source, for deterministic reports.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}
