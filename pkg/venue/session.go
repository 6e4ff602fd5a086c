// ABOUTME: Session lifecycle state machine and per-block processing
// ABOUTME: One program instance attached to a venue's endpoints

package venue

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// State is a session's lifecycle position.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateLinked
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateLinked:
		return "linked"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SampleRateAndBlockSize is the device snapshot a session renders
// against, taken when the session attaches to the venue.
type SampleRateAndBlockSize struct {
	SampleRate int
	BlockSize  int
}

// Status is one session's queryable condition.
type Status struct {
	State      State
	CPU        float64 // smoothed callback load fraction
	XRuns      int     // program + device, device ignored when unknown
	SampleRate int
	BlockSize  int
}

// StateChangeCallback observes session transitions. It fires
// synchronously on every real transition, never on no-ops, and must not
// block.
type StateChangeCallback func(State)

// Session is one live attachment of a program to a venue. Its lifecycle
// walks empty, loaded, linked, running; Unload returns it to empty from
// anywhere. All lifecycle methods are safe to call from one control
// goroutine while the venue renders.
type Session struct {
	id    string
	venue *Venue
	perf  performer.Performer

	mu           sync.Mutex
	state        State
	stateCB      StateChangeCallback
	rateAndBlock SampleRateAndBlockSize

	// Adapters, at most one per kind. Swapped only under the venue
	// registry lock so the audio thread never sees a torn update.
	input  *inputStreamBridge
	output *outputStreamBridge
	events *eventInputBridge
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

func newSession(v *Venue) *Session {
	return &Session{
		id:    uuid.NewString(),
		venue: v,
		perf:  v.factory(),
		rateAndBlock: SampleRateAndBlockSize{
			SampleRate: v.info.SampleRate,
			BlockSize:  v.info.BlockSize,
		},
	}
}

// Load resolves a program into the session's performer. Any previous
// program is unloaded first. On failure the session is empty and the
// returned error carries the diagnostics.
func (s *Session) Load(program performer.Program) error {
	s.mu.Lock()
	transitions := s.unloadLocked()

	var diags performer.Diagnostics
	ok := s.perf.Load(&diags, program)
	if ok && !diags.HasErrors() {
		s.state = StateLoaded
		transitions = append(transitions, StateLoaded)
	}
	s.mu.Unlock()
	s.notify(transitions)

	if !ok || diags.HasErrors() {
		return &diags
	}
	s.venue.log.Info("session loaded", zap.String("session", s.id))
	return nil
}

// Link finalizes the loaded program against the venue's sample rate and
// block size. Legal only from loaded.
func (s *Session) Link() error {
	s.mu.Lock()
	if s.state != StateLoaded {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot link from state %s", state)
	}

	var diags performer.Diagnostics
	ok := s.perf.Link(&diags, performer.LinkOptions{
		SampleRate:   s.rateAndBlock.SampleRate,
		MaxBlockSize: s.rateAndBlock.BlockSize,
	})
	if !ok || diags.HasErrors() {
		s.mu.Unlock()
		return &diags
	}
	s.state = StateLinked
	s.mu.Unlock()
	s.notify([]State{StateLinked})

	s.venue.log.Info("session linked", zap.String("session", s.id),
		zap.Int("sampleRate", s.rateAndBlock.SampleRate),
		zap.Int("blockSize", s.rateAndBlock.BlockSize))
	return nil
}

// Start registers the session with the venue's active set. It succeeds
// only from linked; any other state is a no-op returning false.
func (s *Session) Start() bool {
	s.mu.Lock()
	if s.state != StateLinked {
		s.mu.Unlock()
		return false
	}
	s.venue.addActive(s)
	s.state = StateRunning
	s.mu.Unlock()
	s.notify([]State{StateRunning})

	s.venue.log.Info("session started", zap.String("session", s.id))
	return true
}

// Stop deregisters a running session, returning it to linked. Stopping a
// session that is not running is a no-op returning false.
func (s *Session) Stop() bool {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return false
	}
	s.venue.removeActive(s)
	s.state = StateLinked
	s.mu.Unlock()
	s.notify([]State{StateLinked})

	s.venue.log.Info("session stopped", zap.String("session", s.id))
	return true
}

// Unload stops the session if needed and discards the program and all
// adapters, landing on empty from any prior state.
func (s *Session) Unload() {
	s.mu.Lock()
	transitions := s.unloadLocked()
	s.mu.Unlock()
	s.notify(transitions)

	if len(transitions) > 0 {
		s.venue.log.Info("session unloaded", zap.String("session", s.id))
	}
}

// unloadLocked returns the transitions taken; empty stays empty. Leaving
// running always passes back through linked.
func (s *Session) unloadLocked() []State {
	var transitions []State
	if s.state == StateRunning {
		s.venue.removeActive(s)
		s.state = StateLinked
		transitions = append(transitions, StateLinked)
	}
	if s.state == StateEmpty {
		return transitions
	}
	s.venue.withRegistryLock(func() {
		s.input = nil
		s.output = nil
		s.events = nil
	})
	s.perf.Unload()
	s.state = StateEmpty
	return append(transitions, StateEmpty)
}

// IsRunning reports whether the session is in the venue's active set.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// SetStateChangeCallback installs the transition observer. Passing nil
// removes it.
func (s *Session) SetStateChangeCallback(cb StateChangeCallback) {
	s.mu.Lock()
	s.stateCB = cb
	s.mu.Unlock()
}

// Status reports the session's state together with the venue's smoothed
// load and the combined xrun count. Device-reported xruns are added only
// when the backend knows them (non-negative).
func (s *Session) Status() Status {
	s.mu.Lock()
	state := s.state
	xruns := s.perf.XRuns()
	s.mu.Unlock()

	if devXRuns := s.venue.dev.XRuns(); devXRuns > 0 {
		xruns += devXRuns
	}
	return Status{
		State:      state,
		CPU:        s.venue.meter.Load(),
		XRuns:      xruns,
		SampleRate: s.rateAndBlock.SampleRate,
		BlockSize:  s.rateAndBlock.BlockSize,
	}
}

// notify fires the state callback for each real transition, outside all
// locks.
func (s *Session) notify(transitions []State) {
	if len(transitions) == 0 {
		return
	}
	s.mu.Lock()
	cb := s.stateCB
	s.mu.Unlock()
	if cb == nil {
		return
	}
	for _, st := range transitions {
		cb(st)
	}
}

// connectInput builds the input adapter bridging a venue source endpoint
// to one program input. Returns false, changing nothing, on any
// mismatch: unloaded session, unknown program endpoint, kind or type
// conflicts.
func (s *Session) connectInput(port performer.EndpointID, ep EndpointInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return false
	}
	src := s.perf.InputSource(port)
	if src == nil {
		return false
	}
	details, ok := findDetails(s.perf.InputEndpoints(), port)
	if !ok {
		return false
	}

	if ep.IsMIDI {
		if details.Kind != performer.KindEvent {
			return false
		}
		bridge := newEventBridge(src, s.venue.queueSize)
		s.venue.withRegistryLock(func() {
			s.events = bridge
		})
		return true
	}

	if details.Kind != performer.KindStream {
		return false
	}
	st := details.SingleSampleType()
	switch st.Primitive {
	case performer.Float32, performer.Float64, performer.Int32:
	default:
		return false
	}

	bridge := newInputStreamBridge(src, ep.FirstChannel, st, s.rateAndBlock.BlockSize)
	s.venue.withRegistryLock(func() {
		if s.input != nil {
			s.input.src.RemoveStreamSource()
		}
		src.SetStreamSource(bridge.provide)
		s.input = bridge
	})
	return true
}

// connectOutput mirrors connectInput for a venue sink endpoint. MIDI
// sinks have no adapter in this design; connecting one fails.
func (s *Session) connectOutput(port performer.EndpointID, ep EndpointInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return false
	}
	if ep.IsMIDI {
		return false
	}
	sink := s.perf.OutputSink(port)
	if sink == nil {
		return false
	}
	details, ok := findDetails(s.perf.OutputEndpoints(), port)
	if !ok || details.Kind != performer.KindStream {
		return false
	}
	st := details.SingleSampleType()
	switch st.Primitive {
	case performer.Float32, performer.Float64, performer.Int32:
	default:
		return false
	}

	bridge := newOutputStreamBridge(sink, ep.FirstChannel, st)
	s.venue.withRegistryLock(func() {
		if s.output != nil {
			s.output.sink.RemoveStreamSink()
		}
		sink.SetStreamSink(bridge.consume)
		s.output = bridge
	})
	return true
}

// process renders one block. Audio thread, venue registry lock held.
// Event delivery precedes Prepare and Advance; output collection follows
// through the sink callback during Advance.
func (s *Session) process(input, output [][]float32, frames int, deliverInput bool) {
	if s.events != nil {
		s.events.deliver()
	}
	if s.input != nil {
		s.input.begin(input, frames, deliverInput)
	}
	if s.output != nil {
		s.output.begin(output, frames)
	}

	s.perf.Prepare(frames)
	s.perf.Advance()

	if s.input != nil {
		s.input.end()
	}
	if s.output != nil {
		s.output.end()
	}
}

// pushEvent queues one packed event. MIDI thread, venue registry lock
// held. Returns false only when the event was dropped on overflow.
func (s *Session) pushEvent(frameOffset int, packed int32) bool {
	if s.events == nil {
		return true
	}
	return s.events.push(frameOffset, packed)
}

func findDetails(list []performer.EndpointDetails, id performer.EndpointID) (performer.EndpointDetails, bool) {
	for _, d := range list {
		if d.ID == id {
			return d, true
		}
	}
	return performer.EndpointDetails{}, false
}
