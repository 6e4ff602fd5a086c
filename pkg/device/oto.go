// ABOUTME: Playback-only device backed by the oto library
// ABOUTME: Pulls handler blocks through an io.Reader into an oto player

package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Oto is a playback-only Device for hosts that need no capture path.
// Input channels are forced to zero; the handler always receives an
// empty input set.
type Oto struct {
	mu      sync.Mutex
	otoCtx  *oto.Context
	player  *oto.Player
	h       Handler
	info    Info
	opened  bool
	started bool
}

// NewOto creates an unopened oto device.
func NewOto() *Oto {
	return &Oto{}
}

// Open creates the oto context with the requested format.
func (o *Oto) Open(cfg Config) (Info, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.opened {
		return Info{}, fmt.Errorf("device already open")
	}

	cfg = cfg.withDefaults()
	cfg.InputChannels = 0

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.OutputChannels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return Info{}, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.info = Info{
		SampleRate:     cfg.SampleRate,
		BlockSize:      cfg.BlockSize,
		InputChannels:  0,
		OutputChannels: cfg.OutputChannels,
	}
	o.opened = true
	return o.info, nil
}

// Start begins pulling blocks from the handler.
func (o *Oto) Start(h Handler) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.opened {
		return fmt.Errorf("device not open")
	}
	if o.started {
		return fmt.Errorf("device already started")
	}

	o.h = h
	h.DeviceStarting(o.info)
	o.player = o.otoCtx.NewPlayer(newBlockReader(h, o.info))
	o.player.Play()
	o.started = true
	return nil
}

// Stop pauses playback and releases the player.
func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return nil
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("failed to close player: %w", err)
	}
	o.player = nil
	o.started = false

	// The reader is detached; no further ProcessBlock calls happen.
	o.h.DeviceStopped()
	return nil
}

// Close suspends the oto context. oto contexts are process-wide and
// cannot be destroyed, suspension is as far as teardown goes.
func (o *Oto) Close() error {
	if err := o.Stop(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	o.opened = false
	return nil
}

// XRuns is -1: oto does not report underrun counts.
func (o *Oto) XRuns() int {
	return -1
}

// blockReader adapts the pull-based oto player to the block-push handler
// contract. Read assembles whole blocks and serves them out as bytes.
type blockReader struct {
	h       Handler
	info    Info
	input   [][]float32 // always empty, playback only
	output  [][]float32
	pending []byte
	filled  int // unread bytes remaining in pending
}

func newBlockReader(h Handler, info Info) *blockReader {
	return &blockReader{
		h:      h,
		info:   info,
		input:  allocChannels(0, 0),
		output: allocChannels(info.OutputChannels, info.BlockSize),
	}
}

// Read renders handler blocks on demand. Called from oto's playback
// goroutine, which is the device's real-time thread.
func (r *blockReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.filled == 0 {
		r.renderBlock()
	}

	n := copy(p, r.pending[len(r.pending)-r.filled:])
	r.filled -= n
	return n, nil
}

func (r *blockReader) renderBlock() {
	frames := r.info.BlockSize
	for c := range r.output {
		clearSamples(r.output[c])
	}
	r.h.ProcessBlock(r.input, r.output, frames)

	need := frames * r.info.OutputChannels * 4
	if len(r.pending) < need {
		r.pending = make([]byte, need)
	}
	for f := 0; f < frames; f++ {
		base := f * r.info.OutputChannels * 4
		for c := 0; c < r.info.OutputChannels; c++ {
			binary.LittleEndian.PutUint32(r.pending[base+c*4:], math.Float32bits(r.output[c][f]))
		}
	}
	r.filled = need
}
