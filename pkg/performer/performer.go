// ABOUTME: The Performer interface and its source/sink handles
// ABOUTME: Block-wise load/link/prepare/advance contract consumed by venues

package performer

// Program is the compiled artifact handed to Load. Its representation is
// owned entirely by the Performer implementation.
type Program any

// LinkOptions carries the venue parameters a program needs to finish
// linking for a particular device configuration.
type LinkOptions struct {
	SampleRate   int
	MaxBlockSize int
}

// PostFramesFunc hands a run of frames to the program, starting at the
// given frame offset within the current block.
type PostFramesFunc func(frameOffset int, frames Frames)

// StreamSourceFunc is registered on an input endpoint and invoked by the
// program during Prepare whenever it wants up to numFrames of input. The
// implementation posts zero or more runs covering at most that many
// frames; posting nothing leaves the program running on silence.
type StreamSourceFunc func(numFrames int, post PostFramesFunc)

// StreamSinkFunc is registered on an output endpoint and invoked by the
// program during Advance with the frames it produced. It returns the
// number of frames consumed; sinks in this host always consume the full
// run, the return value is reserved.
type StreamSinkFunc func(frames Frames, numFrames int) int

// InputSource is the handle for one program input endpoint.
//
// Stream registration and event pushes are only legal between Load and
// Unload. PushEvent may be called from the real-time thread; it must not
// allocate or block.
type InputSource interface {
	// SetStreamSource registers the callback the program pulls stream
	// input through. Replaces any previous registration.
	SetStreamSource(fn StreamSourceFunc)

	// RemoveStreamSource deregisters the stream callback.
	RemoveStreamSource()

	// PushEvent queues one event value at a frame offset within the
	// upcoming block. Events are consumed in push order on Advance.
	PushEvent(frameOffset int, event int32)
}

// OutputSink is the handle for one program output endpoint.
type OutputSink interface {
	// SetStreamSink registers the callback the program pushes produced
	// stream frames through. Replaces any previous registration.
	SetStreamSink(fn StreamSinkFunc)

	// RemoveStreamSink deregisters the sink callback.
	RemoveStreamSink()
}

// Performer is one executable instance of a compiled stream program.
//
// Load, Link and Unload run on a control thread. Prepare and Advance run
// on the real-time thread and must not allocate in steady state. The
// endpoint lists and handles are stable from a successful Load until
// Unload.
type Performer interface {
	// Load resolves a compiled program into this instance. Any previous
	// program is unloaded first. On failure it reports through diags,
	// leaves the instance empty and returns false.
	Load(diags *Diagnostics, program Program) bool

	// Link finalizes a loaded program against the venue parameters.
	// Returns false, reporting through diags, if no program is loaded or
	// linking fails.
	Link(diags *Diagnostics, opts LinkOptions) bool

	// Unload discards the program and all endpoint state.
	Unload()

	// IsLinked reports whether the instance is ready to render.
	IsLinked() bool

	// Prepare readies the next block of up to blockSize frames, pulling
	// registered stream sources.
	Prepare(blockSize int)

	// Advance renders the prepared block and pushes produced frames to
	// registered stream sinks.
	Advance()

	// InputEndpoints lists the program's input endpoint descriptors.
	InputEndpoints() []EndpointDetails

	// OutputEndpoints lists the program's output endpoint descriptors.
	OutputEndpoints() []EndpointDetails

	// InputSource returns the handle for an input endpoint, or nil if the
	// ID does not name one.
	InputSource(id EndpointID) InputSource

	// OutputSink returns the handle for an output endpoint, or nil if the
	// ID does not name one.
	OutputSink(id EndpointID) OutputSink

	// XRuns returns the number of overruns/underruns the program itself
	// has counted.
	XRuns() int
}

// Factory creates fresh Performer instances. A venue holds one factory
// and gives every session its own instance.
type Factory func() Performer
