// ABOUTME: Stream bridges between hardware channel buffers and endpoints
// ABOUTME: Type-specialized repackaging with per-block scratch buffers

package venue

import (
	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// inputStreamBridge feeds one program stream input from discrete
// hardware channels. The fill routine is specialized to the endpoint's
// primitive when the bridge is built; the scratch buffer grows only when
// a larger run than ever seen arrives, so steady state never allocates.
//
// All fields are touched with the venue registry lock held.
type inputStreamBridge struct {
	src          performer.InputSource
	firstChannel int
	width        int
	prim         performer.Primitive
	fill         func(start, frames int) performer.Frames
	scratch      performer.Frames

	// per-callback state
	channels [][]float32
	frames   int
	pos      int // monotonic consumption offset into channels
}

func newInputStreamBridge(src performer.InputSource, firstChannel int, st performer.SampleType, blockSize int) *inputStreamBridge {
	b := &inputStreamBridge{
		src:          src,
		firstChannel: firstChannel,
		width:        st.Width(),
		prim:         st.Primitive,
	}
	switch st.Primitive {
	case performer.Float64:
		b.fill = b.fillFloat64
	case performer.Int32:
		b.fill = b.fillInt32
	default:
		b.fill = b.fillFloat32
	}
	b.grow(blockSize)
	return b
}

// begin installs this callback's hardware data. deliver == false
// withholds input for the block: the program still runs, on silence.
func (b *inputStreamBridge) begin(channels [][]float32, frames int, deliver bool) {
	if !deliver || len(channels) == 0 {
		b.channels = nil
		b.frames = 0
		b.pos = 0
		return
	}
	b.channels = channels
	b.frames = frames
	b.pos = 0
}

func (b *inputStreamBridge) end() {
	b.channels = nil
}

// provide is the stream-source callback registered on the endpoint. The
// program may pull a block in several runs; pos keeps sample order
// across them.
func (b *inputStreamBridge) provide(numFrames int, post performer.PostFramesFunc) {
	if b.channels == nil {
		return
	}
	if avail := b.frames - b.pos; numFrames > avail {
		numFrames = avail
	}
	if numFrames <= 0 {
		return
	}
	frames := b.fill(b.pos, numFrames)
	b.pos += numFrames
	post(0, frames)
}

func (b *inputStreamBridge) grow(frames int) {
	n := frames * b.width
	if n > b.scratch.Len() {
		b.scratch = allocFrames(b.prim, n)
	}
}

// sample returns the hardware sample for one endpoint channel, zero when
// the device has fewer channels than the endpoint is wide.
func (b *inputStreamBridge) sample(c, f int) float32 {
	ch := b.firstChannel + c
	if ch >= len(b.channels) {
		return 0
	}
	return b.channels[ch][f]
}

func (b *inputStreamBridge) fillFloat32(start, frames int) performer.Frames {
	b.grow(frames)
	out := b.scratch.Float32
	for f := 0; f < frames; f++ {
		for c := 0; c < b.width; c++ {
			out[f*b.width+c] = b.sample(c, start+f)
		}
	}
	return performer.Frames{Float32: out[:frames*b.width]}
}

func (b *inputStreamBridge) fillFloat64(start, frames int) performer.Frames {
	b.grow(frames)
	out := b.scratch.Float64
	for f := 0; f < frames; f++ {
		for c := 0; c < b.width; c++ {
			out[f*b.width+c] = float64(b.sample(c, start+f))
		}
	}
	return performer.Frames{Float64: out[:frames*b.width]}
}

func (b *inputStreamBridge) fillInt32(start, frames int) performer.Frames {
	b.grow(frames)
	out := b.scratch.Int32
	for f := 0; f < frames; f++ {
		for c := 0; c < b.width; c++ {
			out[f*b.width+c] = int32(b.sample(c, start+f))
		}
	}
	return performer.Frames{Int32: out[:frames*b.width]}
}

// outputStreamBridge writes one program stream output into discrete
// hardware channels, converting from the endpoint's primitive. It
// mirrors the input bridge's per-callback state and offsets.
type outputStreamBridge struct {
	sink         performer.OutputSink
	firstChannel int
	width        int
	write        func(fr performer.Frames, start, frames int)

	channels [][]float32
	frames   int
	pos      int
}

func newOutputStreamBridge(sink performer.OutputSink, firstChannel int, st performer.SampleType) *outputStreamBridge {
	b := &outputStreamBridge{
		sink:         sink,
		firstChannel: firstChannel,
		width:        st.Width(),
	}
	switch st.Primitive {
	case performer.Float64:
		b.write = b.writeFloat64
	case performer.Int32:
		b.write = b.writeInt32
	default:
		b.write = b.writeFloat32
	}
	return b
}

func (b *outputStreamBridge) begin(channels [][]float32, frames int) {
	b.channels = channels
	b.frames = frames
	b.pos = 0
}

func (b *outputStreamBridge) end() {
	b.channels = nil
}

// consume is the stream-sink callback registered on the endpoint. It
// always reports the full run consumed; the return value is reserved.
func (b *outputStreamBridge) consume(fr performer.Frames, numFrames int) int {
	if b.channels == nil {
		return numFrames
	}
	n := numFrames
	if avail := b.frames - b.pos; n > avail {
		n = avail
	}
	if n > 0 {
		b.write(fr, b.pos, n)
		b.pos += n
	}
	return numFrames
}

// store adds a produced sample into the hardware buffer. Outputs mix
// additively so concurrent sessions sum on shared channels.
func (b *outputStreamBridge) store(c, f int, v float32) {
	ch := b.firstChannel + c
	if ch >= len(b.channels) {
		return
	}
	b.channels[ch][f] += v
}

func (b *outputStreamBridge) writeFloat32(fr performer.Frames, start, frames int) {
	in := fr.Float32
	for f := 0; f < frames; f++ {
		for c := 0; c < b.width; c++ {
			b.store(c, start+f, in[f*b.width+c])
		}
	}
}

func (b *outputStreamBridge) writeFloat64(fr performer.Frames, start, frames int) {
	in := fr.Float64
	for f := 0; f < frames; f++ {
		for c := 0; c < b.width; c++ {
			b.store(c, start+f, float32(in[f*b.width+c]))
		}
	}
}

func (b *outputStreamBridge) writeInt32(fr performer.Frames, start, frames int) {
	in := fr.Int32
	for f := 0; f < frames; f++ {
		for c := 0; c < b.width; c++ {
			b.store(c, start+f, float32(in[f*b.width+c]))
		}
	}
}

func allocFrames(p performer.Primitive, n int) performer.Frames {
	switch p {
	case performer.Float64:
		return performer.Frames{Float64: make([]float64, n)}
	case performer.Int32:
		return performer.Frames{Int32: make([]int32, n)}
	default:
		return performer.Frames{Float32: make([]float32, n)}
	}
}
