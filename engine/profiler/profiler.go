package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-2d/common"
	"github.com/Carmen-Shannon/oxy-2d/engine/renderer"
)

// Report is one interval of frame and memory statistics.
type Report struct {
	FPS            float64
	DrawCalls      float64 // average per frame
	Vertices       float64 // average per frame
	LostFrames     uint64  // lost during the interval
	SkippedUploads int
	HeapMB         float64
	AllocRateMB    float64
	SysMB          float64
	GCCount        uint32
	LastPauseUs    uint64
	MaxPauseUs     uint64
}

// Profiler tracks frame rate, draw statistics and memory for performance monitoring.
// Logs a Report through the engine logger at a configurable interval.
type Profiler struct {
	frameCount     int
	drawCalls      int
	vertices       int
	skipped        int
	lastLost       uint64
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per submitted frame with the renderer's statistics.
// Logs a Report when the update interval has elapsed.
//
// Parameters:
//   - stats: the statistics of the frame just submitted
//
// Returns:
//   - Report: the interval report, valid when ok is true
//   - bool: true if stats were logged this tick
func (p *Profiler) Tick(stats renderer.Stats) (Report, bool) {
	p.frameCount++
	p.drawCalls += stats.DrawCalls
	p.vertices += stats.Vertices
	p.skipped += stats.SkippedUploads

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Report{}, false
	}

	frames := float64(p.frameCount)
	r := Report{
		FPS:            frames / elapsed.Seconds(),
		DrawCalls:      float64(p.drawCalls) / frames,
		Vertices:       float64(p.vertices) / frames,
		LostFrames:     stats.LostFrames - p.lastLost,
		SkippedUploads: p.skipped,
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: live heap bytes. TotalAlloc: cumulative heap bytes. Sys: bytes obtained from the OS.
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if r.GCCount-startIdx > 256 {
			startIdx = r.GCCount - 256
		}
		for i := startIdx; i < r.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	common.Logger().Info("profiler",
		"fps", r.FPS,
		"drawCalls", r.DrawCalls,
		"vertices", r.Vertices,
		"lostFrames", r.LostFrames,
		"skippedUploads", r.SkippedUploads,
		"heapMB", r.HeapMB,
		"allocRateMB", r.AllocRateMB,
		"gc", r.GCCount,
		"lastPauseUs", r.LastPauseUs,
		"maxPauseUs", r.MaxPauseUs,
		"sysMB", r.SysMB,
	)

	p.frameCount, p.drawCalls, p.vertices, p.skipped = 0, 0, 0, 0
	p.lastTime = currentTime
	p.lastLost = stats.LostFrames
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r, true
}
