// ABOUTME: Linear sample rate conversion for interleaved float32 audio
// ABOUTME: Streams across chunk boundaries by carrying the last consumed frame
package resample

// Resampler converts interleaved float32 audio from one sample rate to
// another using linear interpolation. It is stateful: the most recently
// consumed input frame is carried so a stream can be fed in chunks of
// any size without clicks at the seams.
type Resampler struct {
	step     float64
	channels int
	frac     float64
	prev     []float32
	primed   bool
}

// New creates a resampler for the given conversion. Rates and channels
// must be positive.
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		step:     float64(inputRate) / float64(outputRate),
		channels: channels,
		prev:     make([]float32, channels),
	}
}

// Process reads frames from input and writes resampled frames to output
// until one side is exhausted. Both slices are interleaved; their frame
// counts are len/channels. It returns the number of input frames
// consumed and output frames produced. Unconsumed input must be offered
// again on the next call.
func (r *Resampler) Process(input, output []float32) (consumed, produced int) {
	inFrames := len(input) / r.channels
	outFrames := len(output) / r.channels

	for produced < outFrames {
		if !r.primed {
			if consumed >= inFrames {
				return consumed, produced
			}
			copy(r.prev, input[consumed*r.channels:(consumed+1)*r.channels])
			consumed++
			r.primed = true
		}
		for r.frac >= 1 {
			if consumed >= inFrames {
				return consumed, produced
			}
			copy(r.prev, input[consumed*r.channels:(consumed+1)*r.channels])
			consumed++
			r.frac--
		}

		base := produced * r.channels
		if r.frac == 0 {
			copy(output[base:base+r.channels], r.prev)
		} else {
			// Interpolation peeks at the next frame without consuming
			// it, so the final fraction of a chunk waits for the next.
			if consumed >= inFrames {
				return consumed, produced
			}
			next := input[consumed*r.channels:]
			t := float32(r.frac)
			for c := 0; c < r.channels; c++ {
				a := r.prev[c]
				output[base+c] = a + t*(next[c]-a)
			}
		}
		produced++
		r.frac += r.step
	}
	return consumed, produced
}

// Reset discards the carried position so the next Process call starts a
// fresh stream.
func (r *Resampler) Reset() {
	r.frac = 0
	r.primed = false
}
