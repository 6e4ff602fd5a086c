// ABOUTME: Package documentation for the venue engine
// ABOUTME: Sessions, endpoint bridges and the real-time fan-out

// Package venue runs compiled stream programs live against an audio
// device.
//
// A Venue owns one hardware connection and publishes the endpoints
// derived from it: defaultIn and defaultOut for the device's channels,
// defaultMidiIn and defaultMidiOut for events. Sessions are created from
// the venue, walk the empty/loaded/linked/running lifecycle, and attach
// their program's typed endpoints to venue endpoints through bridges
// built at connect time.
//
// Three execution contexts share a venue: the device's real-time
// callback, which fans each block out to the running sessions; the
// caller's control goroutine driving session lifecycles; and a timer
// goroutine handling MIDI port rescans and the stall watchdog. The
// active-session set is guarded by one registry lock held briefly by
// all three; MIDI events cross into the audio thread through a
// wait-free queue instead.
package venue
