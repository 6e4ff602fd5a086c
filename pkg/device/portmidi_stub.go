//go:build !portmidi

// ABOUTME: PortMidi stub when library not available
// ABOUTME: Provides compile-time placeholder when portmidi not installed

package device

import "fmt"

// PortMIDI MIDI backend (stub)
type PortMIDI struct{}

// NewPortMIDI reports that portmidi support is not compiled in.
func NewPortMIDI() (*PortMIDI, error) {
	return nil, fmt.Errorf("portmidi support not enabled (build with -tags portmidi)")
}

// Ports lists input ports
func (p *PortMIDI) Ports() ([]string, error) {
	return nil, fmt.Errorf("portmidi support not enabled (build with -tags portmidi)")
}

// OpenPort opens an input port
func (p *PortMIDI) OpenPort(name string, h MIDIHandler) (MIDIPort, error) {
	return nil, fmt.Errorf("portmidi support not enabled (build with -tags portmidi)")
}

// Close releases resources
func (p *PortMIDI) Close() error {
	return nil
}
