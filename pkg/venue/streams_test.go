// ABOUTME: Tests for the stream bridges between device channels and programs
// ABOUTME: Covers pull offsets, sample types, channel mapping and output mixing

package venue

import (
	"testing"

	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// recordingSink captures what a program output endpoint would emit.
type recordingSink struct {
	stream performer.StreamSinkFunc
}

func (r *recordingSink) SetStreamSink(fn performer.StreamSinkFunc) { r.stream = fn }
func (r *recordingSink) RemoveStreamSink()                         { r.stream = nil }

func float32Stereo() performer.SampleType {
	return performer.SampleType{Primitive: performer.Float32, VectorSize: 2}
}

func TestInputBridgeInterleavesChannels(t *testing.T) {
	src := &recordingSource{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 2}
	b := newInputStreamBridge(src, 0, st, 4)

	channels := [][]float32{{1, 2, 3, 4}, {10, 20, 30, 40}}
	b.begin(channels, 4, true)

	var got []float32
	b.provide(4, func(frameOffset int, fr performer.Frames) {
		if frameOffset != 0 {
			t.Errorf("expected frame offset 0, got %d", frameOffset)
		}
		got = append(got, fr.Float32...)
	})
	b.end()

	want := []float32{1, 10, 2, 20, 3, 30, 4, 40}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestInputBridgeMonotonicOffsets(t *testing.T) {
	src := &recordingSource{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 1}
	b := newInputStreamBridge(src, 0, st, 8)

	b.begin([][]float32{{1, 2, 3, 4, 5, 6, 7, 8}}, 8, true)

	// Two sub-block pulls walk forward through the block.
	var first, second []float32
	b.provide(3, func(_ int, fr performer.Frames) {
		first = append(first, fr.Float32...)
	})
	b.provide(3, func(_ int, fr performer.Frames) {
		second = append(second, fr.Float32...)
	})
	b.end()

	if len(first) != 3 || first[0] != 1 || first[2] != 3 {
		t.Errorf("expected first pull [1 2 3], got %v", first)
	}
	if len(second) != 3 || second[0] != 4 || second[2] != 6 {
		t.Errorf("expected second pull [4 5 6], got %v", second)
	}
}

func TestInputBridgeClampsToBlock(t *testing.T) {
	src := &recordingSource{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 1}
	b := newInputStreamBridge(src, 0, st, 4)

	b.begin([][]float32{{1, 2}}, 2, true)

	var got []float32
	calls := 0
	post := func(_ int, fr performer.Frames) {
		calls++
		got = append(got, fr.Float32...)
	}
	b.provide(5, post) // over-ask clamps to the two available frames
	b.provide(5, post) // drained block provides nothing
	b.end()

	if calls != 1 {
		t.Fatalf("expected 1 post, got %d", calls)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}
}

func TestInputBridgeWithheld(t *testing.T) {
	src := &recordingSource{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 1}
	b := newInputStreamBridge(src, 0, st, 4)

	// deliver=false covers the warm-up period: the program still runs but
	// pulls find no frames.
	b.begin([][]float32{{1, 2, 3, 4}}, 4, false)
	calls := 0
	b.provide(4, func(_ int, _ performer.Frames) { calls++ })
	b.end()

	if calls != 0 {
		t.Errorf("expected no posts while withheld, got %d", calls)
	}
}

func TestInputBridgeZeroFillsMissingChannels(t *testing.T) {
	src := &recordingSource{}
	b := newInputStreamBridge(src, 0, float32Stereo(), 2)

	// Mono hardware feeding a stereo endpoint: channel 1 reads silence.
	b.begin([][]float32{{5, 6}}, 2, true)
	var got []float32
	b.provide(2, func(_ int, fr performer.Frames) {
		got = append(got, fr.Float32...)
	})
	b.end()

	want := []float32{5, 0, 6, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestInputBridgeFloat64(t *testing.T) {
	src := &recordingSource{}
	st := performer.SampleType{Primitive: performer.Float64, VectorSize: 1}
	b := newInputStreamBridge(src, 0, st, 2)

	b.begin([][]float32{{0.5, -0.5}}, 2, true)
	var got []float64
	b.provide(2, func(_ int, fr performer.Frames) {
		got = append(got, fr.Float64...)
	})
	b.end()

	if len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("expected [0.5 -0.5], got %v", got)
	}
}

func TestInputBridgeInt32(t *testing.T) {
	src := &recordingSource{}
	st := performer.SampleType{Primitive: performer.Int32, VectorSize: 1}
	b := newInputStreamBridge(src, 0, st, 2)

	b.begin([][]float32{{3, -7}}, 2, true)
	var got []int32
	b.provide(2, func(_ int, fr performer.Frames) {
		got = append(got, fr.Int32...)
	})
	b.end()

	if len(got) != 2 || got[0] != 3 || got[1] != -7 {
		t.Errorf("expected [3 -7], got %v", got)
	}
}

func TestInputBridgeScratchGrowth(t *testing.T) {
	src := &recordingSource{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 1}
	b := newInputStreamBridge(src, 0, st, 4)

	if got := b.scratch.Len(); got != 4 {
		t.Fatalf("expected scratch sized to the block, got %d", got)
	}

	b.begin([][]float32{make([]float32, 16)}, 16, true)
	b.provide(16, func(_ int, _ performer.Frames) {})
	b.end()
	if got := b.scratch.Len(); got != 16 {
		t.Errorf("expected scratch grown to 16, got %d", got)
	}

	// Smaller runs after the growth reuse the same backing buffer.
	grown := &b.scratch.Float32[0]
	b.begin([][]float32{make([]float32, 8)}, 8, true)
	b.provide(8, func(_ int, _ performer.Frames) {})
	b.end()
	if &b.scratch.Float32[0] != grown {
		t.Error("expected smaller blocks to reuse the grown scratch")
	}
}

func TestOutputBridgeMixesAdditively(t *testing.T) {
	sink := &recordingSink{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 1}
	b := newOutputStreamBridge(sink, 0, st)

	channels := [][]float32{{0.25, 0.25}}
	b.begin(channels, 2)
	n := b.consume(performer.Frames{Float32: []float32{0.5, 0.5}}, 2)
	b.end()

	if n != 2 {
		t.Fatalf("expected full consumption of 2 frames, got %d", n)
	}
	if channels[0][0] != 0.75 || channels[0][1] != 0.75 {
		t.Errorf("expected mixed [0.75 0.75], got %v", channels[0])
	}
}

func TestOutputBridgeConsumesEvenWhenInactive(t *testing.T) {
	sink := &recordingSink{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 1}
	b := newOutputStreamBridge(sink, 0, st)

	// No block bound. The program's frames are still accepted so it never
	// buffers against a sink that will not drain.
	if n := b.consume(performer.Frames{Float32: []float32{1, 2, 3}}, 3); n != 3 {
		t.Errorf("expected 3 frames consumed, got %d", n)
	}
}

func TestOutputBridgeDropsChannelsPastDevice(t *testing.T) {
	sink := &recordingSink{}
	b := newOutputStreamBridge(sink, 0, float32Stereo())

	// Stereo endpoint into a mono device: the second channel goes nowhere.
	channels := [][]float32{{0, 0}}
	b.begin(channels, 2)
	b.consume(performer.Frames{Float32: []float32{1, 9, 2, 9}}, 2)
	b.end()

	if channels[0][0] != 1 || channels[0][1] != 2 {
		t.Errorf("expected [1 2], got %v", channels[0])
	}
}

func TestOutputBridgeFirstChannelOffset(t *testing.T) {
	sink := &recordingSink{}
	st := performer.SampleType{Primitive: performer.Float32, VectorSize: 1}
	b := newOutputStreamBridge(sink, 1, st)

	channels := [][]float32{{0, 0}, {0, 0}}
	b.begin(channels, 2)
	b.consume(performer.Frames{Float32: []float32{3, 4}}, 2)
	b.end()

	if channels[0][0] != 0 || channels[0][1] != 0 {
		t.Errorf("expected channel 0 untouched, got %v", channels[0])
	}
	if channels[1][0] != 3 || channels[1][1] != 4 {
		t.Errorf("expected channel 1 [3 4], got %v", channels[1])
	}
}
