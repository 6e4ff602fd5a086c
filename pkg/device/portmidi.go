//go:build portmidi

// ABOUTME: PortMidi-backed MIDI input backend
// ABOUTME: Forwards all port events through one dispatch goroutine

package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/rakyll/portmidi"
)

// PortMIDI implements MIDIBackend on top of the portmidi library. Each
// open port forwards its events into one shared dispatch goroutine so
// handlers see a single producer regardless of port count.
type PortMIDI struct {
	mu     sync.Mutex
	events chan portMIDIEvent
	done   chan struct{}
	closed bool
}

type portMIDIEvent struct {
	data [3]byte
	when time.Time
	h    MIDIHandler
}

// NewPortMIDI initializes portmidi and starts the dispatch goroutine.
func NewPortMIDI() (*PortMIDI, error) {
	if err := portmidi.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portmidi: %w", err)
	}
	p := &PortMIDI{
		events: make(chan portMIDIEvent, 256),
		done:   make(chan struct{}),
	}
	go p.dispatch()
	return p, nil
}

func (p *PortMIDI) dispatch() {
	for {
		select {
		case <-p.done:
			return
		case ev := <-p.events:
			ev.h(ev.data[:], ev.when)
		}
	}
}

// Ports lists the input-capable portmidi devices.
func (p *PortMIDI) Ports() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("portmidi backend closed")
	}

	var names []string
	count := portmidi.CountDevices()
	for i := 0; i < count; i++ {
		info := portmidi.Info(portmidi.DeviceID(i))
		if info != nil && info.IsInputAvailable {
			names = append(names, info.Name)
		}
	}
	return names, nil
}

// OpenPort opens the named input device and forwards its events.
func (p *PortMIDI) OpenPort(name string, h MIDIHandler) (MIDIPort, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("portmidi backend closed")
	}

	id := portmidi.DeviceID(-1)
	count := portmidi.CountDevices()
	for i := 0; i < count; i++ {
		info := portmidi.Info(portmidi.DeviceID(i))
		if info != nil && info.IsInputAvailable && info.Name == name {
			id = portmidi.DeviceID(i)
			break
		}
	}
	if id < 0 {
		return nil, fmt.Errorf("no MIDI input named %q", name)
	}

	stream, err := portmidi.NewInputStream(id, 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI input %q: %w", name, err)
	}

	port := &portMIDIPort{name: name, stream: stream, done: make(chan struct{})}
	go p.forward(port, h)
	return port, nil
}

// forward moves one stream's events into the shared dispatch channel.
func (p *PortMIDI) forward(port *portMIDIPort, h MIDIHandler) {
	ch := port.stream.Listen()
	for {
		select {
		case <-port.done:
			return
		case <-p.done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if len(ev.SysEx) > 0 {
				continue // long messages have no packed representation
			}
			pe := portMIDIEvent{
				data: [3]byte{byte(ev.Status), byte(ev.Data1), byte(ev.Data2)},
				when: time.Now(),
				h:    h,
			}
			select {
			case p.events <- pe:
			case <-p.done:
				return
			}
		}
	}
}

// Close terminates portmidi. Open ports must be closed first.
func (p *PortMIDI) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	if err := portmidi.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate portmidi: %w", err)
	}
	return nil
}

type portMIDIPort struct {
	name   string
	stream *portmidi.Stream
	once   sync.Once
	done   chan struct{}
}

func (p *portMIDIPort) Name() string {
	return p.name
}

func (p *portMIDIPort) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.stream.Close()
	})
	return err
}
