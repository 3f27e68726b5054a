package es

import "context"

// Codec is the external collaborator that turns application events into
// wire bodies and back. Implementations may reject unknown event types by
// returning ok=false from TryDecode; the engine treats that as a skip, not
// a failure.
type Codec[E any] interface {
	// Encode produces the wire form of event e: its type tag, data and
	// metadata bodies, and the identifiers that travel with it. ctx carries
	// caller-supplied correlation/causation information.
	Encode(ctx context.Context, e E) (EventData, error)

	// TryDecode attempts to reconstruct an application event from a
	// TimelineEvent. ok is false when the event's type tag is not
	// recognized; in that case the event is skipped by the fold and err
	// must be nil. A non-nil err is a terminal failure and propagates.
	TryDecode(evt TimelineEvent) (event E, ok bool, err error)
}
