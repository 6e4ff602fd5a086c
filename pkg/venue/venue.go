// ABOUTME: Venue owning the hardware connection and the session registry
// ABOUTME: Fans the real-time callback out to every running session

package venue

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/soundstage-audio/soundstage-go/internal/loadmeter"
	"github.com/soundstage-audio/soundstage-go/pkg/device"
	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

const (
	// warm-up samples swallowed before input reaches sessions
	defaultWarmUpSamples = 15000

	// timer thread cadence, ~3 Hz
	timerInterval = 333 * time.Millisecond

	// MIDI ports are rescanned every 6th tick, ~2 s
	midiRescanTicks = 6

	minSampleRate = 1000
	maxSampleRate = 384000
	maxBlockSize  = 2048
)

// Config configures a Venue. Zero values select defaults; rate and
// block requests outside the supported range fall back to the device
// default.
type Config struct {
	SampleRate     int
	BlockSize      int
	InputChannels  int
	OutputChannels int

	// EventQueueSize caps each session's MIDI event queue.
	EventQueueSize int

	// WarmUpSamples overrides the input warm-up length. Negative
	// disables warm-up entirely.
	WarmUpSamples int

	// MIDI supplies input ports; nil runs audio-only.
	MIDI device.MIDIBackend

	// Logger receives venue activity; nil keeps the venue silent.
	Logger *zap.Logger

	// OnStall overrides what happens when the watchdog declares the
	// real-time path stuck. The default logs at fatal level and
	// terminates the process.
	OnStall func()
}

// EndpointInfo is a venue endpoint: the published descriptor plus its
// physical binding. Built once when the device opens, read-only after.
type EndpointInfo struct {
	performer.EndpointDetails
	FirstChannel int
	NumChannels  int
	IsMIDI       bool
}

// Venue owns one hardware audio/MIDI connection, the endpoint registry
// derived from it, and the set of running sessions sharing its
// real-time callback.
type Venue struct {
	log     *zap.Logger
	dev     device.Device
	midi    device.MIDIBackend
	factory performer.Factory

	info    device.Info
	sources []EndpointInfo
	sinks   []EndpointInfo

	// registry lock: guards the active set against the audio thread.
	// Held by the audio thread each callback, so other holders keep
	// their critical sections to single add/remove/swap operations.
	lock   sync.Mutex
	active []*Session

	meter         *loadmeter.Meter
	callbackCount atomic.Uint64
	totalFrames   atomic.Uint64
	lastCallback  atomic.Int64 // unix nanos of the current block start

	warmUpSamples   int
	warmUpRemaining int // audio thread only
	queueSize       int

	droppedEvents atomic.Uint64

	ports map[string]device.MIDIPort // timer thread only

	dog       *watchdog
	terminate func()

	done    chan struct{}
	timerWG sync.WaitGroup

	closeMu sync.Mutex
	closed  bool
}

// New opens the device, publishes the endpoint registry and starts the
// stream and the maintenance timer. A device that fails to open is
// fatal for the venue: the error is returned and no venue exists.
func New(cfg Config, factory performer.Factory, dev device.Device) (*Venue, error) {
	if factory == nil {
		return nil, fmt.Errorf("performer factory is required")
	}
	if dev == nil {
		return nil, fmt.Errorf("audio device is required")
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.SampleRate < minSampleRate || cfg.SampleRate > maxSampleRate {
		cfg.SampleRate = 0
	}
	if cfg.BlockSize < 1 || cfg.BlockSize > maxBlockSize {
		cfg.BlockSize = 0
	}

	info, err := dev.Open(device.Config{
		SampleRate:     cfg.SampleRate,
		BlockSize:      cfg.BlockSize,
		InputChannels:  cfg.InputChannels,
		OutputChannels: cfg.OutputChannels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}

	v := &Venue{
		log:           log,
		dev:           dev,
		midi:          cfg.MIDI,
		factory:       factory,
		info:          info,
		meter:         loadmeter.New(),
		warmUpSamples: cfg.WarmUpSamples,
		queueSize:     cfg.EventQueueSize,
		ports:         make(map[string]device.MIDIPort),
		done:          make(chan struct{}),
	}
	if v.midi == nil {
		v.midi = device.NoMIDI{}
	}
	if v.warmUpSamples == 0 {
		v.warmUpSamples = defaultWarmUpSamples
	}
	if v.warmUpSamples < 0 {
		v.warmUpSamples = 0
	}
	v.terminate = cfg.OnStall
	if v.terminate == nil {
		v.terminate = func() {
			v.log.Fatal("audio callback stalled, terminating",
				zap.Duration("timeout", watchdogTimeout),
				zap.Uint64("callbacks", v.callbackCount.Load()))
		}
	}
	v.dog = newWatchdog(time.Now(), v.terminate)
	v.buildRegistry()

	if err := dev.Start(v); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to start audio device: %w", err)
	}

	v.rescanMIDI()
	v.timerWG.Add(1)
	go v.timerLoop()

	log.Info("venue ready",
		zap.Int("sampleRate", info.SampleRate),
		zap.Int("blockSize", info.BlockSize),
		zap.Int("inputChannels", info.InputChannels),
		zap.Int("outputChannels", info.OutputChannels))
	return v, nil
}

// buildRegistry derives the endpoint registry from the opened device's
// active channel counts plus the two implicit MIDI endpoints.
func (v *Venue) buildRegistry() {
	v.sources = v.sources[:0]
	v.sinks = v.sinks[:0]

	if v.info.InputChannels > 0 {
		v.sources = append(v.sources, EndpointInfo{
			EndpointDetails: streamEndpointDetails("defaultIn", v.info.InputChannels),
			FirstChannel:    0,
			NumChannels:     v.info.InputChannels,
		})
	}
	if v.info.OutputChannels > 0 {
		v.sinks = append(v.sinks, EndpointInfo{
			EndpointDetails: streamEndpointDetails("defaultOut", v.info.OutputChannels),
			FirstChannel:    0,
			NumChannels:     v.info.OutputChannels,
		})
	}
	v.sources = append(v.sources, EndpointInfo{
		EndpointDetails: eventEndpointDetails("defaultMidiIn"),
		IsMIDI:          true,
	})
	// Published for completeness; no adapter materializes MIDI output.
	v.sinks = append(v.sinks, EndpointInfo{
		EndpointDetails: eventEndpointDetails("defaultMidiOut"),
		IsMIDI:          true,
	})
}

func streamEndpointDetails(id performer.EndpointID, channels int) performer.EndpointDetails {
	return performer.EndpointDetails{
		ID:          id,
		Name:        string(id),
		Kind:        performer.KindStream,
		SampleTypes: []performer.SampleType{{Primitive: performer.Float32, VectorSize: channels}},
		StrideBytes: channels * 4,
	}
}

func eventEndpointDetails(id performer.EndpointID) performer.EndpointDetails {
	return performer.EndpointDetails{
		ID:          id,
		Name:        string(id),
		Kind:        performer.KindEvent,
		SampleTypes: []performer.SampleType{{Primitive: performer.Int32, VectorSize: 1}},
		StrideBytes: 4,
	}
}

// CreateSession gives out a new session with its own fresh performer
// instance. Always succeeds; no program is loaded yet.
func (v *Venue) CreateSession() *Session {
	s := newSession(v)
	v.log.Info("session created", zap.String("session", s.id))
	return s
}

// SourceEndpoints returns a snapshot of the venue's input endpoints.
func (v *Venue) SourceEndpoints() []EndpointInfo {
	return append([]EndpointInfo(nil), v.sources...)
}

// SinkEndpoints returns a snapshot of the venue's output endpoints.
func (v *Venue) SinkEndpoints() []EndpointInfo {
	return append([]EndpointInfo(nil), v.sinks...)
}

// ConnectSessionInputEndpoint bridges the venue source endpoint named by
// venueEndpoint to the session's program input port. Returns false,
// changing nothing, when the endpoint is unknown, the venue is closed,
// or kind/type mismatch. Reconnecting replaces the previous adapter.
func (v *Venue) ConnectSessionInputEndpoint(s *Session, port performer.EndpointID, venueEndpoint performer.EndpointID) bool {
	if s == nil || s.venue != v || v.isClosed() {
		return false
	}
	ep, ok := findEndpoint(v.sources, venueEndpoint)
	if !ok {
		return false
	}
	return s.connectInput(port, ep)
}

// ConnectSessionOutputEndpoint mirrors ConnectSessionInputEndpoint for
// sink endpoints.
func (v *Venue) ConnectSessionOutputEndpoint(s *Session, port performer.EndpointID, venueEndpoint performer.EndpointID) bool {
	if s == nil || s.venue != v || v.isClosed() {
		return false
	}
	ep, ok := findEndpoint(v.sinks, venueEndpoint)
	if !ok {
		return false
	}
	return s.connectOutput(port, ep)
}

// Info returns the opened device configuration.
func (v *Venue) Info() device.Info {
	return v.info
}

// Load returns the venue's smoothed callback load fraction.
func (v *Venue) Load() float64 {
	return v.meter.Load()
}

// CallbackCount returns how many device callbacks have run.
func (v *Venue) CallbackCount() uint64 {
	return v.callbackCount.Load()
}

// TotalFrames returns how many frames the venue has rendered.
func (v *Venue) TotalFrames() uint64 {
	return v.totalFrames.Load()
}

// DroppedEvents returns how many MIDI events overflowed session queues.
func (v *Venue) DroppedEvents() uint64 {
	return v.droppedEvents.Load()
}

// InjectMIDI feeds one MIDI message through the venue as if it had
// arrived on an open input port. Messages without a packed form are
// ignored.
func (v *Venue) InjectMIDI(data []byte) {
	v.handleMIDI(data, time.Now())
}

// Close stops remaining sessions, the maintenance timer, MIDI ports and
// the device. Safe to call more than once.
func (v *Venue) Close() error {
	v.closeMu.Lock()
	if v.closed {
		v.closeMu.Unlock()
		return nil
	}
	v.closed = true
	v.closeMu.Unlock()

	close(v.done)
	v.timerWG.Wait()

	for name, port := range v.ports {
		if err := port.Close(); err != nil {
			v.log.Warn("failed to close MIDI port", zap.String("port", name), zap.Error(err))
		}
		delete(v.ports, name)
	}

	v.lock.Lock()
	running := append([]*Session(nil), v.active...)
	v.lock.Unlock()
	for _, s := range running {
		s.Stop()
	}

	if err := v.dev.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	if err := v.dev.Close(); err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	v.log.Info("venue closed")
	return nil
}

func (v *Venue) isClosed() bool {
	v.closeMu.Lock()
	defer v.closeMu.Unlock()
	return v.closed
}

// DeviceStarting implements device.Handler. Runs before the first block.
func (v *Venue) DeviceStarting(info device.Info) {
	v.info = info
	v.warmUpRemaining = v.warmUpSamples
	v.meter.Reset()
	v.log.Info("audio device starting",
		zap.Int("sampleRate", info.SampleRate),
		zap.Int("blockSize", info.BlockSize))
}

// DeviceStopped implements device.Handler.
func (v *Venue) DeviceStopped() {
	v.log.Info("audio device stopped")
}

// ProcessBlock implements device.Handler: the venue's real-time
// callback. It brackets the block with load measurement, clears the
// hardware output, and runs every active session under the registry
// lock. During warm-up, input delivery is withheld and sessions run on
// silence.
func (v *Venue) ProcessBlock(input, output [][]float32, frames int) {
	v.meter.Begin()
	v.callbackCount.Add(1)
	v.lastCallback.Store(time.Now().UnixNano())

	for c := range output {
		buf := output[c][:frames]
		for i := range buf {
			buf[i] = 0
		}
	}

	deliverInput := true
	if v.warmUpRemaining > 0 {
		v.warmUpRemaining -= frames
		deliverInput = false
	}

	v.lock.Lock()
	for _, s := range v.active {
		s.process(input, output, frames, deliverInput)
	}
	v.lock.Unlock()

	v.totalFrames.Add(uint64(frames))
	v.meter.End(frames, v.info.SampleRate)
}

// addActive registers a session for callback fan-out. Idempotent.
func (v *Venue) addActive(s *Session) {
	v.lock.Lock()
	defer v.lock.Unlock()
	for _, a := range v.active {
		if a == s {
			return
		}
	}
	v.active = append(v.active, s)
}

// removeActive deregisters a session. Idempotent.
func (v *Venue) removeActive(s *Session) {
	v.lock.Lock()
	defer v.lock.Unlock()
	for i, a := range v.active {
		if a == s {
			v.active = append(v.active[:i], v.active[i+1:]...)
			return
		}
	}
}

// withRegistryLock runs fn holding the registry lock. Used for adapter
// swaps that must not tear against the audio thread.
func (v *Venue) withRegistryLock(fn func()) {
	v.lock.Lock()
	fn()
	v.lock.Unlock()
}

// timerLoop is the low-frequency maintenance thread: watchdog checks on
// every tick, MIDI port rescans every couple of seconds.
func (v *Venue) timerLoop() {
	defer v.timerWG.Done()
	ticker := time.NewTicker(timerInterval)
	defer ticker.Stop()

	ticks := 0
	var lastDropped uint64
	for {
		select {
		case <-v.done:
			return
		case now := <-ticker.C:
			v.dog.check(now, v.callbackCount.Load())
			if d := v.droppedEvents.Load(); d != lastDropped {
				v.log.Warn("MIDI events dropped", zap.Uint64("total", d))
				lastDropped = d
			}
			ticks++
			if ticks%midiRescanTicks == 0 {
				v.rescanMIDI()
			}
		}
	}
}

// rescanMIDI reconciles open ports with the backend's current port
// list: vanished ports are closed, new ones opened. Timer thread only.
func (v *Venue) rescanMIDI() {
	names, err := v.midi.Ports()
	if err != nil {
		v.log.Warn("MIDI port scan failed", zap.Error(err))
		return
	}

	current := make(map[string]bool, len(names))
	for _, name := range names {
		current[name] = true
	}

	for name, port := range v.ports {
		if current[name] {
			continue
		}
		if err := port.Close(); err != nil {
			v.log.Warn("failed to close MIDI port", zap.String("port", name), zap.Error(err))
		}
		delete(v.ports, name)
		v.log.Info("MIDI input removed", zap.String("port", name))
	}

	for _, name := range names {
		if _, open := v.ports[name]; open {
			continue
		}
		port, err := v.midi.OpenPort(name, v.handleMIDI)
		if err != nil {
			v.log.Warn("failed to open MIDI port", zap.String("port", name), zap.Error(err))
			continue
		}
		v.ports[name] = port
		v.log.Info("MIDI input opened", zap.String("port", name))
	}
}

// handleMIDI runs on the MIDI backend's dispatch goroutine. It packs
// the message, stamps it with an estimated offset into the current
// block, and queues it for every running session.
func (v *Venue) handleMIDI(data []byte, when time.Time) {
	packed, ok := PackMessage(data)
	if !ok {
		return
	}
	offset := v.estimateFrameOffset(when)

	v.lock.Lock()
	for _, s := range v.active {
		if !s.pushEvent(offset, packed) {
			v.droppedEvents.Add(1)
		}
	}
	v.lock.Unlock()
}

// estimateFrameOffset places an arrival time within the current block,
// from the block start stamp and the sample rate.
func (v *Venue) estimateFrameOffset(when time.Time) int {
	startNanos := v.lastCallback.Load()
	if startNanos == 0 {
		return 0
	}
	elapsed := when.Sub(time.Unix(0, startNanos)).Seconds()
	offset := int(elapsed * float64(v.info.SampleRate))
	if offset < 0 {
		offset = 0
	}
	if offset >= v.info.BlockSize {
		offset = v.info.BlockSize - 1
	}
	return offset
}

func findEndpoint(list []EndpointInfo, id performer.EndpointID) (EndpointInfo, bool) {
	for _, ep := range list {
		if ep.ID == id {
			return ep, true
		}
	}
	return EndpointInfo{}, false
}
