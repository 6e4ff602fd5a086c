// ABOUTME: Shared endpoint plumbing for the built-in programs
// ABOUTME: Source/sink handle implementations and block buffer helpers

// Package builtin provides small ready-made programs implementing the
// performer contract: a passthrough, a MIDI-controllable tone generator
// and a CPU burner. The binaries and tests host these instead of a real
// compiled program.
package builtin

import (
	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// pendingEvent is one queued endpoint event awaiting the next Advance.
type pendingEvent struct {
	frameOffset int
	value       int32
}

// source implements performer.InputSource for one endpoint.
type source struct {
	stream performer.StreamSourceFunc
	events []pendingEvent
}

func newSource() source {
	return source{events: make([]pendingEvent, 0, 64)}
}

func (s *source) SetStreamSource(fn performer.StreamSourceFunc) {
	s.stream = fn
}

func (s *source) RemoveStreamSource() {
	s.stream = nil
}

func (s *source) PushEvent(frameOffset int, event int32) {
	s.events = append(s.events, pendingEvent{frameOffset, event})
}

// pullInto asks the registered stream callback for frames of float32
// input, interleaved at width elements per frame. dst is zeroed first so
// a silent or missing source yields silence.
func (s *source) pullInto(dst []float32, frames, width int) {
	for i := range dst[:frames*width] {
		dst[i] = 0
	}
	if s.stream == nil {
		return
	}
	s.stream(frames, func(offset int, fr performer.Frames) {
		if fr.Float32 == nil || offset < 0 || offset >= frames {
			return
		}
		copy(dst[offset*width:frames*width], fr.Float32)
	})
}

// reset drops the registration and any queued events.
func (s *source) reset() {
	s.stream = nil
	s.events = s.events[:0]
}

// sink implements performer.OutputSink for one endpoint.
type sink struct {
	stream performer.StreamSinkFunc
}

func (k *sink) SetStreamSink(fn performer.StreamSinkFunc) {
	k.stream = fn
}

func (k *sink) RemoveStreamSink() {
	k.stream = nil
}

// push hands produced float32 frames to the registered sink, if any.
func (k *sink) push(buf []float32, frames, width int) {
	if k.stream == nil {
		return
	}
	k.stream(performer.Frames{Float32: buf[:frames*width]}, frames)
}

func (k *sink) reset() {
	k.stream = nil
}

// streamDetails builds the descriptor of a float32 stream endpoint.
func streamDetails(id performer.EndpointID, width int) performer.EndpointDetails {
	return performer.EndpointDetails{
		ID:          id,
		Name:        string(id),
		Kind:        performer.KindStream,
		SampleTypes: []performer.SampleType{{Primitive: performer.Float32, VectorSize: width}},
		StrideBytes: width * 4,
	}
}

// eventDetails builds the descriptor of an int32 event endpoint.
func eventDetails(id performer.EndpointID) performer.EndpointDetails {
	return performer.EndpointDetails{
		ID:          id,
		Name:        string(id),
		Kind:        performer.KindEvent,
		SampleTypes: []performer.SampleType{{Primitive: performer.Int32, VectorSize: 1}},
		StrideBytes: 4,
	}
}

const defaultBlockSize = 512
