// ABOUTME: Tests for the float32 linear resampler
// ABOUTME: Covers ratios, chunked feeding, channel alignment, and reset
package resample

import (
	"testing"
)

func TestIdentityPassesThrough(t *testing.T) {
	r := New(48000, 48000, 1)

	input := []float32{1, 2, 3, 4, 5}
	output := make([]float32, 5)

	consumed, produced := r.Process(input, output)
	if consumed != 5 {
		t.Errorf("expected 5 frames consumed, got %d", consumed)
	}
	if produced != 5 {
		t.Errorf("expected 5 frames produced, got %d", produced)
	}
	for i, want := range input {
		if output[i] != want {
			t.Errorf("frame %d: expected %v, got %v", i, want, output[i])
		}
	}
}

func TestUpsampleInterpolatesMidpoints(t *testing.T) {
	r := New(24000, 48000, 1)

	var stream []float32
	out := make([]float32, 8)
	for _, chunk := range [][]float32{{1, 2}, {3, 4}} {
		off := 0
		for off < len(chunk) {
			consumed, produced := r.Process(chunk[off:], out)
			stream = append(stream, out[:produced]...)
			off += consumed
			if consumed == 0 && produced == 0 {
				break
			}
		}
	}

	want := []float32{1, 1.5, 2, 2.5, 3, 3.5, 4}
	if len(stream) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(stream))
	}
	for i := range want {
		if stream[i] != want[i] {
			t.Errorf("frame %d: expected %v, got %v", i, want[i], stream[i])
		}
	}
}

func TestDownsampleSkipsFrames(t *testing.T) {
	r := New(48000, 24000, 1)

	input := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	output := make([]float32, 4)

	consumed, produced := r.Process(input, output)
	if consumed != 8 {
		t.Errorf("expected 8 frames consumed, got %d", consumed)
	}
	if produced != 4 {
		t.Errorf("expected 4 frames produced, got %d", produced)
	}

	want := []float32{1, 3, 5, 7}
	for i := range want {
		if output[i] != want[i] {
			t.Errorf("frame %d: expected %v, got %v", i, want[i], output[i])
		}
	}
}

func TestChunkedFeedMatchesWholeBuffer(t *testing.T) {
	input := make([]float32, 200)
	for i := range input {
		input[i] = float32(i) * 0.01
	}

	whole := New(44100, 48000, 1)
	wholeOut := make([]float32, 400)
	_, wholeProduced := whole.Process(input, wholeOut)

	chunked := New(44100, 48000, 1)
	var stream []float32
	out := make([]float32, 400)
	sizes := []int{7, 13, 5, 31, 1, 64}
	off := 0
	for si := 0; off < len(input); si++ {
		end := off + sizes[si%len(sizes)]
		if end > len(input) {
			end = len(input)
		}
		chunk := input[off:end]
		pos := 0
		for {
			consumed, produced := chunked.Process(chunk[pos:], out)
			stream = append(stream, out[:produced]...)
			pos += consumed
			if pos >= len(chunk) || (consumed == 0 && produced == 0) {
				break
			}
		}
		off = end
	}

	if len(stream) != wholeProduced {
		t.Fatalf("expected %d frames from chunked feed, got %d", wholeProduced, len(stream))
	}
	for i := 0; i < wholeProduced; i++ {
		if stream[i] != wholeOut[i] {
			t.Fatalf("frame %d: chunked %v differs from whole-buffer %v", i, stream[i], wholeOut[i])
		}
	}
}

func TestStereoKeepsChannelsAligned(t *testing.T) {
	r := New(24000, 48000, 2)

	// Left ramps up, right ramps down.
	input := []float32{1, -1, 2, -2, 3, -3}
	output := make([]float32, 12)

	_, produced := r.Process(input, output)
	if produced < 4 {
		t.Fatalf("expected at least 4 frames, got %d", produced)
	}
	for f := 0; f < produced; f++ {
		l := output[f*2]
		rch := output[f*2+1]
		if l != -rch {
			t.Errorf("frame %d: channels drifted, left %v right %v", f, l, rch)
		}
	}
	want := []float32{1, 1.5, 2, 2.5}
	for f := range want {
		if output[f*2] != want[f] {
			t.Errorf("frame %d left: expected %v, got %v", f, want[f], output[f*2])
		}
	}
}

func TestResetStartsFresh(t *testing.T) {
	r := New(44100, 48000, 1)

	output := make([]float32, 16)
	r.Process([]float32{5, 6, 7, 8}, output)

	r.Reset()
	consumed, produced := r.Process([]float32{9, 10}, output)
	if consumed == 0 || produced == 0 {
		t.Fatalf("expected progress after reset, got consumed %d produced %d", consumed, produced)
	}
	if output[0] != 9 {
		t.Errorf("expected first frame 9 after reset, got %v", output[0])
	}
}

func TestEmptyBuffersMakeNoProgress(t *testing.T) {
	r := New(48000, 44100, 2)

	consumed, produced := r.Process(nil, make([]float32, 8))
	if consumed != 0 || produced != 0 {
		t.Errorf("expected no progress on empty input, got consumed %d produced %d", consumed, produced)
	}

	consumed, produced = r.Process(make([]float32, 8), nil)
	if consumed != 0 || produced != 0 {
		t.Errorf("expected no progress on empty output, got consumed %d produced %d", consumed, produced)
	}
}
