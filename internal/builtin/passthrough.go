// ABOUTME: Passthrough program copying its input stream to its output
// ABOUTME: The reference program for bridge and lifecycle tests

package builtin

import (
	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// Passthrough copies "audioIn" to "audioOut" unchanged, one block at a
// time.
type Passthrough struct {
	channels int
	loaded   bool
	linked   bool
	block    int
	cur      int

	in  source
	out sink

	inBuf  []float32
	outBuf []float32
}

// NewPassthrough creates a passthrough over the given channel count.
func NewPassthrough(channels int) *Passthrough {
	if channels < 1 {
		channels = 2
	}
	return &Passthrough{channels: channels, in: newSource()}
}

// PassthroughFactory returns a factory producing fresh passthroughs.
func PassthroughFactory(channels int) performer.Factory {
	return func() performer.Performer { return NewPassthrough(channels) }
}

func (p *Passthrough) Load(diags *performer.Diagnostics, program performer.Program) bool {
	p.Unload()
	if program == nil {
		diags.AddError("no program provided")
		return false
	}
	p.loaded = true
	return true
}

func (p *Passthrough) Link(diags *performer.Diagnostics, opts performer.LinkOptions) bool {
	if !p.loaded {
		diags.AddError("no program loaded")
		return false
	}
	p.block = opts.MaxBlockSize
	if p.block <= 0 {
		p.block = defaultBlockSize
	}
	p.inBuf = make([]float32, p.channels*p.block)
	p.outBuf = make([]float32, p.channels*p.block)
	p.linked = true
	return true
}

func (p *Passthrough) Unload() {
	p.loaded = false
	p.linked = false
	p.in.reset()
	p.out.reset()
}

func (p *Passthrough) IsLinked() bool {
	return p.linked
}

func (p *Passthrough) Prepare(blockSize int) {
	if !p.linked {
		return
	}
	if blockSize > p.block {
		blockSize = p.block
	}
	p.cur = blockSize
	p.in.pullInto(p.inBuf, p.cur, p.channels)
}

func (p *Passthrough) Advance() {
	if !p.linked || p.cur == 0 {
		return
	}
	// Events on a passthrough have nowhere to go; drop them.
	p.in.events = p.in.events[:0]
	copy(p.outBuf[:p.cur*p.channels], p.inBuf[:p.cur*p.channels])
	p.out.push(p.outBuf, p.cur, p.channels)
	p.cur = 0
}

func (p *Passthrough) InputEndpoints() []performer.EndpointDetails {
	if !p.loaded {
		return nil
	}
	return []performer.EndpointDetails{streamDetails("audioIn", p.channels)}
}

func (p *Passthrough) OutputEndpoints() []performer.EndpointDetails {
	if !p.loaded {
		return nil
	}
	return []performer.EndpointDetails{streamDetails("audioOut", p.channels)}
}

func (p *Passthrough) InputSource(id performer.EndpointID) performer.InputSource {
	if p.loaded && id == "audioIn" {
		return &p.in
	}
	return nil
}

func (p *Passthrough) OutputSink(id performer.EndpointID) performer.OutputSink {
	if p.loaded && id == "audioOut" {
		return &p.out
	}
	return nil
}

func (p *Passthrough) XRuns() int {
	return 0
}
