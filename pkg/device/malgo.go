// ABOUTME: Full-duplex hardware device backed by malgo/miniaudio
// ABOUTME: Deinterleaves capture and interleaves playback around the handler

package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Malgo is the default live Device, a full-duplex miniaudio stream in
// float32. With zero input channels it opens playback-only.
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	info     Info
	h        Handler
	opened   bool
	started  bool

	// Deinterleave scratch, audio thread only. Grown when the driver
	// delivers a larger block than seen before.
	input         [][]float32
	output        [][]float32
	scratchFrames int
}

// NewMalgo creates an unopened miniaudio device.
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Open initializes the miniaudio context and fixes the stream format.
func (m *Malgo) Open(cfg Config) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opened {
		return Info{}, fmt.Errorf("device already open")
	}

	cfg = cfg.withDefaults()
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return Info{}, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	m.malgoCtx = ctx
	m.info = Info{
		SampleRate:     cfg.SampleRate,
		BlockSize:      cfg.BlockSize,
		InputChannels:  cfg.InputChannels,
		OutputChannels: cfg.OutputChannels,
	}
	m.input = allocChannels(m.info.InputChannels, m.info.BlockSize)
	m.output = allocChannels(m.info.OutputChannels, m.info.BlockSize)
	m.scratchFrames = m.info.BlockSize
	m.opened = true
	return m.info, nil
}

// Start opens the miniaudio stream and begins callbacks to the handler.
func (m *Malgo) Start(h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return fmt.Errorf("device not open")
	}
	if m.started {
		return fmt.Errorf("device already started")
	}

	deviceType := malgo.Duplex
	if m.info.InputChannels == 0 {
		deviceType = malgo.Playback
	}

	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.SampleRate = uint32(m.info.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.info.BlockSize)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(m.info.OutputChannels)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(m.info.InputChannels)
	deviceConfig.Alsa.NoMMap = 1

	onData := func(pOutput, pInput []byte, frameCount uint32) {
		m.dataCallback(pOutput, pInput, int(frameCount))
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("failed to initialize duplex device: %w", err)
	}

	m.h = h
	h.DeviceStarting(m.info)

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.started = true
	return nil
}

// dataCallback bridges one miniaudio callback to the handler.
func (m *Malgo) dataCallback(pOutput, pInput []byte, frames int) {
	if frames > m.scratchFrames {
		m.input = allocChannels(m.info.InputChannels, frames)
		m.output = allocChannels(m.info.OutputChannels, frames)
		m.scratchFrames = frames
	}
	// Hand the handler slices of exactly this callback's length.
	for c := range m.input {
		m.input[c] = m.input[c][:frames]
	}
	for c := range m.output {
		m.output[c] = m.output[c][:frames]
	}

	deinterleave(pInput, m.input, m.info.InputChannels, frames)
	m.h.ProcessBlock(m.input, m.output, frames)
	interleave(pOutput, m.output, m.info.OutputChannels, frames)
}

// Stop halts callbacks, leaving the device open for another Start.
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	m.device.Uninit()
	m.device = nil
	m.started = false
	m.h.DeviceStopped()
	return nil
}

// Close releases the device and the miniaudio context.
func (m *Malgo) Close() error {
	if err := m.Stop(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			return fmt.Errorf("malgo context uninit: %w", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	m.opened = false
	return nil
}

// XRuns is -1: miniaudio does not report overrun counts.
func (m *Malgo) XRuns() int {
	return -1
}

// deinterleave unpacks little-endian float32 frames into discrete
// channel slices. A nil source leaves the channels zeroed.
func deinterleave(src []byte, dst [][]float32, channels, frames int) {
	if channels == 0 {
		return
	}
	if src == nil {
		for c := 0; c < channels; c++ {
			clearSamples(dst[c][:frames])
		}
		return
	}
	for f := 0; f < frames; f++ {
		base := f * channels * 4
		for c := 0; c < channels; c++ {
			bits := binary.LittleEndian.Uint32(src[base+c*4:])
			dst[c][f] = math.Float32frombits(bits)
		}
	}
}

// interleave packs discrete channel slices into little-endian float32
// frames.
func interleave(dst []byte, src [][]float32, channels, frames int) {
	if channels == 0 || dst == nil {
		return
	}
	for f := 0; f < frames; f++ {
		base := f * channels * 4
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint32(dst[base+c*4:], math.Float32bits(src[c][f]))
		}
	}
}

func clearSamples(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
