// ABOUTME: MIDI event packing and the event-input bridge
// ABOUTME: Carries packed messages from the MIDI thread into a program

package venue

import (
	"github.com/soundstage-audio/soundstage-go/internal/eventfifo"
	"github.com/soundstage-audio/soundstage-go/pkg/performer"
)

// PackMessage packs a short MIDI message into the integer form event
// endpoints consume: byte 0 lands in bits 16-23, byte 1 in bits 8-15,
// byte 2 in bits 0-7. Messages longer than three bytes have no packed
// form; they are rejected with ok == false and must not be queued.
func PackMessage(data []byte) (packed int32, ok bool) {
	if len(data) == 0 || len(data) > 3 {
		return 0, false
	}
	packed = int32(data[0]) << 16
	if len(data) > 1 {
		packed |= int32(data[1]) << 8
	}
	if len(data) > 2 {
		packed |= int32(data[2])
	}
	return packed, true
}

// UnpackMessage recovers the three message bytes from a packed event.
func UnpackMessage(packed int32) [3]byte {
	return [3]byte{byte(packed >> 16), byte(packed >> 8), byte(packed)}
}

// eventInputBridge feeds one program event endpoint from the MIDI
// thread. The FIFO is the only state shared between the MIDI thread and
// the audio thread; it is wait-free on both sides.
type eventInputBridge struct {
	src  performer.InputSource
	fifo *eventfifo.FIFO
}

func newEventBridge(src performer.InputSource, capacity int) *eventInputBridge {
	return &eventInputBridge{src: src, fifo: eventfifo.New(capacity)}
}

// push queues one packed event. MIDI thread side. Returns false when the
// queue is full and the event was dropped.
func (b *eventInputBridge) push(frameOffset int, packed int32) bool {
	if frameOffset < 0 {
		frameOffset = 0
	}
	return b.fifo.Push(uint32(frameOffset), packed)
}

// deliver drains every queued event into the program, in arrival order.
// Audio thread side, once per block before the program advances.
func (b *eventInputBridge) deliver() {
	b.fifo.Drain(func(frameOffset uint32, event int32) {
		b.src.PushEvent(int(frameOffset), event)
	})
}

func (b *eventInputBridge) dropped() uint64 {
	return b.fifo.Dropped()
}
