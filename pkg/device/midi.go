// ABOUTME: MIDI input backend interface and the empty default
// ABOUTME: Port enumeration and single-goroutine event delivery

package device

import (
	"fmt"
	"time"
)

// MIDIHandler receives one raw MIDI message and its arrival time.
type MIDIHandler func(data []byte, when time.Time)

// MIDIPort is one open MIDI input connection.
type MIDIPort interface {
	Name() string
	Close() error
}

// MIDIBackend enumerates and opens MIDI input ports. Every handler
// registered on one backend is invoked from a single backend-owned
// goroutine, so a consumer can treat all ports as one event producer.
type MIDIBackend interface {
	// Ports lists the input port names currently available. The result
	// changes as devices are plugged and unplugged.
	Ports() ([]string, error)

	// OpenPort starts delivering the named port's messages to h.
	OpenPort(name string, h MIDIHandler) (MIDIPort, error)
}

// NoMIDI is a backend without ports, for hosts that run audio only.
type NoMIDI struct{}

func (NoMIDI) Ports() ([]string, error) {
	return nil, nil
}

func (NoMIDI) OpenPort(name string, h MIDIHandler) (MIDIPort, error) {
	return nil, fmt.Errorf("no MIDI port %q", name)
}
