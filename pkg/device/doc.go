// ABOUTME: Package documentation for the device layer
// ABOUTME: Hardware and offline audio/MIDI backends behind one interface

// Package device abstracts the audio hardware a venue renders against.
//
// A Device delivers discrete non-interleaved float32 channel buffers to a
// Handler once per block, on its own real-time thread. Backends: Malgo
// (full-duplex miniaudio, the default for live use), Oto (playback only)
// and Render (offline, pumped manually by the caller).
//
// MIDI input arrives separately through a MIDIBackend, which invokes all
// of its port handlers from a single goroutine so downstream queues can
// rely on one producer.
package device
