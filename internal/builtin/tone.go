// ABOUTME: Sine tone program with MIDI note control
// ABOUTME: Demo program for the event bridge and audible output

package builtin

import (
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// Tone renders a sine wave on "audioOut" and listens on "midiIn": a note
// start retunes the oscillator to the note's pitch, a note end silences
// it. Without any MIDI it plays its base frequency.
type Tone struct {
	channels int
	baseFreq float64
	gain     float64
	loaded   bool
	linked   bool
	rate     int
	block    int
	cur      int

	phase    float64
	phaseInc float64
	gate     bool

	midi source
	out  sink

	outBuf []float32
}

// NewTone creates a tone program at the given base frequency.
func NewTone(channels int, freq float64) *Tone {
	if channels < 1 {
		channels = 2
	}
	if freq <= 0 {
		freq = 440
	}
	return &Tone{channels: channels, baseFreq: freq, gain: 0.2, midi: newSource()}
}

// ToneFactory returns a factory producing fresh tone programs.
func ToneFactory(channels int, freq float64) performer.Factory {
	return func() performer.Performer { return NewTone(channels, freq) }
}

func (t *Tone) Load(diags *performer.Diagnostics, program performer.Program) bool {
	t.Unload()
	if program == nil {
		diags.AddError("no program provided")
		return false
	}
	t.loaded = true
	return true
}

func (t *Tone) Link(diags *performer.Diagnostics, opts performer.LinkOptions) bool {
	if !t.loaded {
		diags.AddError("no program loaded")
		return false
	}
	t.rate = opts.SampleRate
	if t.rate <= 0 {
		t.rate = 44100
	}
	t.block = opts.MaxBlockSize
	if t.block <= 0 {
		t.block = defaultBlockSize
	}
	t.outBuf = make([]float32, t.channels*t.block)
	t.phase = 0
	t.phaseInc = 2 * math.Pi * t.baseFreq / float64(t.rate)
	t.gate = true
	t.linked = true
	return true
}

func (t *Tone) Unload() {
	t.loaded = false
	t.linked = false
	t.midi.reset()
	t.out.reset()
}

func (t *Tone) IsLinked() bool {
	return t.linked
}

func (t *Tone) Prepare(blockSize int) {
	if !t.linked {
		return
	}
	if blockSize > t.block {
		blockSize = t.block
	}
	t.cur = blockSize
}

func (t *Tone) Advance() {
	if !t.linked || t.cur == 0 {
		return
	}

	for _, ev := range t.midi.events {
		t.applyEvent(ev.value)
	}
	t.midi.events = t.midi.events[:0]

	amp := 0.0
	if t.gate {
		amp = t.gain
	}
	for f := 0; f < t.cur; f++ {
		v := float32(math.Sin(t.phase) * amp)
		t.phase += t.phaseInc
		for c := 0; c < t.channels; c++ {
			t.outBuf[f*t.channels+c] = v
		}
	}
	if t.phase > 2*math.Pi {
		t.phase -= 2 * math.Pi * math.Floor(t.phase/(2*math.Pi))
	}

	t.out.push(t.outBuf, t.cur, t.channels)
	t.cur = 0
}

// applyEvent interprets one packed MIDI event.
func (t *Tone) applyEvent(packed int32) {
	msg := midi.Message([]byte{byte(packed >> 16), byte(packed >> 8), byte(packed)})

	var channel, key, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		t.phaseInc = 2 * math.Pi * noteFrequency(key) / float64(t.rate)
		t.gate = true
	case msg.GetNoteEnd(&channel, &key):
		t.gate = false
	}
}

// noteFrequency converts a MIDI key number to Hz, A4 = 440.
func noteFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

func (t *Tone) InputEndpoints() []performer.EndpointDetails {
	if !t.loaded {
		return nil
	}
	return []performer.EndpointDetails{eventDetails("midiIn")}
}

func (t *Tone) OutputEndpoints() []performer.EndpointDetails {
	if !t.loaded {
		return nil
	}
	return []performer.EndpointDetails{streamDetails("audioOut", t.channels)}
}

func (t *Tone) InputSource(id performer.EndpointID) performer.InputSource {
	if t.loaded && id == "midiIn" {
		return &t.midi
	}
	return nil
}

func (t *Tone) OutputSink(id performer.EndpointID) performer.OutputSink {
	if t.loaded && id == "audioOut" {
		return &t.out
	}
	return nil
}

func (t *Tone) XRuns() int {
	return 0
}
