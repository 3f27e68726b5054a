package es

import (
	"time"

	"github.com/google/uuid"
)

// EventData is what gets written: an event id, a type tag, and an opaque
// data/metadata body produced by a Codec. It carries no index — the
// adapter assigns that on append.
type EventData struct {
	// EventID uniquely identifies this event. Callers supply it (usually via
	// a Codec's Encode) so retries and dedup keys are stable.
	EventID uuid.UUID

	// EventType is the wire tag a Codec uses to pick a decoder.
	EventType string

	// Data is the codec-produced payload. Opaque to the core.
	Data []byte

	// Metadata is the codec-produced metadata body. Opaque to the core.
	Metadata []byte

	// CorrelationID and CausationID are optional tracing identifiers
	// threaded through by the Codec at encode time.
	CorrelationID uuid.NullUUID
	CausationID   uuid.NullUUID
}

// TimelineEvent is what a read yields: an EventData plus its position in
// the stream and the bookkeeping the store adapter computed for it.
type TimelineEvent struct {
	// Index is the zero-based, dense position of this event in its stream.
	Index int64

	EventType string
	Data      []byte
	Metadata  []byte

	EventID       uuid.UUID
	CorrelationID uuid.NullUUID
	CausationID   uuid.NullUUID

	// Timestamp is when the adapter persisted the event, in UTC.
	Timestamp time.Time

	// Size is the computed size of Data+Metadata, for access-strategy batch
	// accounting. Adapters compute it; callers should treat it as advisory.
	Size int
}
