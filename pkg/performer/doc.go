// ABOUTME: Package documentation for the performer contract
// ABOUTME: Defines the boundary between compiled programs and their hosts

// Package performer defines the contract between a compiled block-based
// stream program and the venue that runs it.
//
// A Performer is an opaque, already-compiled program instance. The venue
// never inspects program internals; it only loads and links the program,
// discovers its typed endpoints, attaches stream/event adapters to them,
// and drives the block cycle of Prepare followed by Advance.
//
// Everything in this package is fixed once published: endpoint details do
// not change after Load, and the venue relies on that to build adapters a
// single time at connection.
package performer
