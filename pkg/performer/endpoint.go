// ABOUTME: Endpoint model shared by programs and venues
// ABOUTME: IDs, kinds, sample types and immutable endpoint descriptors

package performer

import "fmt"

// EndpointID is the opaque, stable identifier of one program port.
type EndpointID string

// EndpointKind distinguishes continuous streams from discrete events.
type EndpointKind int

const (
	// KindStream carries one sample frame per block position.
	KindStream EndpointKind = iota
	// KindEvent carries discrete timestamped values.
	KindEvent
)

func (k EndpointKind) String() string {
	switch k {
	case KindStream:
		return "stream"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("EndpointKind(%d)", int(k))
	}
}

// Primitive is the numeric element type of an endpoint.
type Primitive int

const (
	Float32 Primitive = iota
	Float64
	Int32
)

func (p Primitive) String() string {
	switch p {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("Primitive(%d)", int(p))
	}
}

// Bytes returns the size of one element in bytes.
func (p Primitive) Bytes() int {
	switch p {
	case Float64:
		return 8
	default:
		return 4
	}
}

// SampleType describes one admissible frame type of an endpoint: a scalar
// or a fixed-width vector of a primitive.
type SampleType struct {
	Primitive  Primitive
	VectorSize int // 1 for scalar
}

// Width returns the number of elements per frame.
func (t SampleType) Width() int {
	if t.VectorSize < 1 {
		return 1
	}
	return t.VectorSize
}

// Bytes returns the size of one frame in bytes.
func (t SampleType) Bytes() int {
	return t.Width() * t.Primitive.Bytes()
}

// EndpointDetails describes one program endpoint. Instances are immutable
// once published by a loaded program; only per-block buffer lengths vary.
type EndpointDetails struct {
	ID          EndpointID
	Name        string
	Kind        EndpointKind
	SampleTypes []SampleType
	StrideBytes int
}

// SingleSampleType returns the endpoint's only admissible sample type.
// Stream endpoints in this host always declare exactly one.
func (d EndpointDetails) SingleSampleType() SampleType {
	if len(d.SampleTypes) == 0 {
		return SampleType{Primitive: Float32, VectorSize: 1}
	}
	return d.SampleTypes[0]
}

// Frames carries one run of interleaved endpoint data. Exactly one of the
// typed slices is non-nil, matching the endpoint's declared primitive.
type Frames struct {
	Float32 []float32
	Float64 []float64
	Int32   []int32
}

// Len returns the element count of whichever slice is populated.
func (f Frames) Len() int {
	switch {
	case f.Float32 != nil:
		return len(f.Float32)
	case f.Float64 != nil:
		return len(f.Float64)
	case f.Int32 != nil:
		return len(f.Int32)
	default:
		return 0
	}
}
