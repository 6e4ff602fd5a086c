// ABOUTME: Offline render device pumped manually by the caller
// ABOUTME: Used for faster-than-realtime rendering and tests

package device

import "fmt"

// Render is an offline Device. It never spawns a callback thread; each
// Pump call runs exactly one block through the handler. The input and
// output buffers are owned by the device and reused across blocks, so a
// caller can fill Input before a Pump and read Output after it.
type Render struct {
	info    Info
	h       Handler
	input   [][]float32
	output  [][]float32
	opened  bool
	started bool
}

// NewRender creates an unopened offline device.
func NewRender() *Render {
	return &Render{}
}

// Open fixes the render configuration.
func (r *Render) Open(cfg Config) (Info, error) {
	if r.opened {
		return Info{}, fmt.Errorf("render device already open")
	}
	cfg = cfg.withDefaults()
	r.info = Info{
		SampleRate:     cfg.SampleRate,
		BlockSize:      cfg.BlockSize,
		InputChannels:  cfg.InputChannels,
		OutputChannels: cfg.OutputChannels,
	}
	r.input = allocChannels(r.info.InputChannels, r.info.BlockSize)
	r.output = allocChannels(r.info.OutputChannels, r.info.BlockSize)
	r.opened = true
	return r.info, nil
}

// Start attaches the handler. Blocks only run when Pump is called.
func (r *Render) Start(h Handler) error {
	if !r.opened {
		return fmt.Errorf("render device not open")
	}
	if r.started {
		return fmt.Errorf("render device already started")
	}
	r.h = h
	r.started = true
	h.DeviceStarting(r.info)
	return nil
}

// Pump runs one block through the handler and returns the number of
// frames rendered, or 0 if the device is not started.
func (r *Render) Pump() int {
	if !r.started {
		return 0
	}
	r.h.ProcessBlock(r.input, r.output, r.info.BlockSize)
	return r.info.BlockSize
}

// Input returns the per-channel input buffers the next Pump will hand to
// the handler. Callers fill these to simulate capture.
func (r *Render) Input() [][]float32 {
	return r.input
}

// Output returns the per-channel output buffers the last Pump produced.
func (r *Render) Output() [][]float32 {
	return r.output
}

// Stop detaches the handler.
func (r *Render) Stop() error {
	if !r.started {
		return nil
	}
	r.started = false
	r.h.DeviceStopped()
	return nil
}

// Close stops the device if needed.
func (r *Render) Close() error {
	if err := r.Stop(); err != nil {
		return err
	}
	r.opened = false
	return nil
}

// XRuns is always 0: an offline device has no deadlines to miss.
func (r *Render) XRuns() int {
	return 0
}

func allocChannels(channels, frames int) [][]float32 {
	bufs := make([][]float32, channels)
	for i := range bufs {
		bufs[i] = make([]float32, frames)
	}
	return bufs
}
