// ABOUTME: Callback occupancy measurement for the real-time thread
// ABOUTME: Smoothed fraction of each block's duration spent rendering

// Package loadmeter measures how much of each audio block's real-time
// budget the callback actually used. Begin and End bracket the render
// work on the audio thread; Load is safe to read from any thread.
package loadmeter

import (
	"math"
	"sync/atomic"
	"time"
)

// smoothing weight of the newest block measurement
const alpha = 0.2

// Meter tracks a smoothed callback load fraction. A value of 1.0 means
// the callback consumed its entire real-time budget; values above 1.0
// mean deadlines are being missed.
type Meter struct {
	now      func() time.Time
	start    time.Time     // audio thread only
	smoothed atomic.Uint64 // float64 bits
}

// New returns a meter reading 0.
func New() *Meter {
	return &Meter{now: time.Now}
}

// Begin marks the start of one callback. Audio thread only.
func (m *Meter) Begin() {
	m.start = m.now()
}

// End folds the elapsed time since Begin into the smoothed load, scaled
// against the duration the rendered frames represent. Audio thread only.
func (m *Meter) End(frames, sampleRate int) {
	if frames <= 0 || sampleRate <= 0 {
		return
	}
	elapsed := m.now().Sub(m.start).Seconds()
	if elapsed < 0 {
		return
	}
	budget := float64(frames) / float64(sampleRate)
	load := elapsed / budget
	prev := m.Load()
	m.smoothed.Store(math.Float64bits(prev + alpha*(load-prev)))
}

// Load returns the smoothed load fraction, in [0, +inf).
func (m *Meter) Load() float64 {
	return math.Float64frombits(m.smoothed.Load())
}

// Reset clears the measurement, for device reopen.
func (m *Meter) Reset() {
	m.smoothed.Store(0)
}
