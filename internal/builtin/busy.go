// ABOUTME: CPU-burning program producing silence
// ABOUTME: Drives the load meter up for tests and demos

package builtin

import (
	"math"

	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// Busy spends a configurable amount of CPU per frame and outputs
// silence on "audioOut".
type Busy struct {
	channels int
	spin     int
	loaded   bool
	linked   bool
	block    int
	cur      int

	out    sink
	outBuf []float32

	// keeps the burn loop observable so it cannot be optimized away
	acc float64
}

// NewBusy creates a burner running spin sine evaluations per frame.
func NewBusy(channels, spin int) *Busy {
	if channels < 1 {
		channels = 2
	}
	if spin < 1 {
		spin = 100
	}
	return &Busy{channels: channels, spin: spin}
}

// BusyFactory returns a factory producing fresh burners.
func BusyFactory(channels, spin int) performer.Factory {
	return func() performer.Performer { return NewBusy(channels, spin) }
}

func (b *Busy) Load(diags *performer.Diagnostics, program performer.Program) bool {
	b.Unload()
	if program == nil {
		diags.AddError("no program provided")
		return false
	}
	b.loaded = true
	return true
}

func (b *Busy) Link(diags *performer.Diagnostics, opts performer.LinkOptions) bool {
	if !b.loaded {
		diags.AddError("no program loaded")
		return false
	}
	b.block = opts.MaxBlockSize
	if b.block <= 0 {
		b.block = defaultBlockSize
	}
	b.outBuf = make([]float32, b.channels*b.block)
	b.linked = true
	return true
}

func (b *Busy) Unload() {
	b.loaded = false
	b.linked = false
	b.out.reset()
}

func (b *Busy) IsLinked() bool {
	return b.linked
}

func (b *Busy) Prepare(blockSize int) {
	if !b.linked {
		return
	}
	if blockSize > b.block {
		blockSize = b.block
	}
	b.cur = blockSize
}

func (b *Busy) Advance() {
	if !b.linked || b.cur == 0 {
		return
	}
	acc := b.acc
	for i := 0; i < b.spin*b.cur; i++ {
		acc += math.Sin(float64(i))
	}
	b.acc = acc

	for i := range b.outBuf[:b.cur*b.channels] {
		b.outBuf[i] = 0
	}
	b.out.push(b.outBuf, b.cur, b.channels)
	b.cur = 0
}

func (b *Busy) InputEndpoints() []performer.EndpointDetails {
	return nil
}

func (b *Busy) OutputEndpoints() []performer.EndpointDetails {
	if !b.loaded {
		return nil
	}
	return []performer.EndpointDetails{streamDetails("audioOut", b.channels)}
}

func (b *Busy) InputSource(id performer.EndpointID) performer.InputSource {
	return nil
}

func (b *Busy) OutputSink(id performer.EndpointID) performer.OutputSink {
	if b.loaded && id == "audioOut" {
		return &b.out
	}
	return nil
}

func (b *Busy) XRuns() int {
	return 0
}
