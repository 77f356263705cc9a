// Package processor defines the transport adapter contract. A
// processor translates one transport's framed messages into bus
// commands (inbound) and renders reply commands back onto the wire
// (outbound). Everything transport-specific stays behind this boundary;
// the dispatcher never branches on message origin.
package processor

import "context"

// Processor is a per-transport adapter bound to one dispatcher
// inlet/outlet pair.
//
// Inbound, a processor either produces a well-formed command on its
// inlet or answers genuinely unparseable input directly on the
// transport, without touching the dispatcher. Outbound, it consumes its
// outlet until the dispatcher closes it on shutdown.
type Processor interface {
	// ID is the processor identifier registered with the dispatcher.
	ID() string
	// Start opens the transport and begins both directions.
	Start(ctx context.Context) error
	// Stop closes the transport's ingress. The outbound half keeps
	// draining until the dispatcher closes the outlet, so no reply for
	// an in-flight command is lost.
	Stop(ctx context.Context) error
}
