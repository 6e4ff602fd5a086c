// ABOUTME: Device interface and callback contract
// ABOUTME: Common open/start/stop lifecycle for audio backends

package device

// Config requests a device configuration. Zero fields mean "use the
// backend default".
type Config struct {
	SampleRate     int
	BlockSize      int
	InputChannels  int
	OutputChannels int
}

// withDefaults fills zero fields with the defaults shared by backends.
func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.BlockSize <= 0 {
		c.BlockSize = 512
	}
	if c.OutputChannels <= 0 {
		c.OutputChannels = 2
	}
	if c.InputChannels < 0 {
		c.InputChannels = 0
	}
	return c
}

// Info describes the configuration a device actually opened with.
type Info struct {
	SampleRate     int
	BlockSize      int
	InputChannels  int
	OutputChannels int
}

// Handler receives device lifecycle notifications and per-block audio.
type Handler interface {
	// DeviceStarting runs before the first ProcessBlock after Start.
	DeviceStarting(info Info)

	// DeviceStopped runs after the last ProcessBlock once the device has
	// stopped.
	DeviceStopped()

	// ProcessBlock renders one block. input and output hold one discrete
	// float32 slice per channel, each frames long, valid only for the
	// duration of the call. output arrives zeroed or stale; the handler
	// owns its contents. Called on the device's real-time thread.
	ProcessBlock(input, output [][]float32, frames int)
}

// Device is one audio connection with a manual lifecycle: Open, then
// Start with a handler, Stop, and finally Close to release the backend.
type Device interface {
	Open(cfg Config) (Info, error)
	Start(h Handler) error
	Stop() error
	Close() error

	// XRuns returns the overrun/underrun count the backend has observed,
	// or -1 when the backend cannot tell.
	XRuns() int
}
