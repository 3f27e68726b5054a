package es

import (
	"fmt"
	"strings"
)

// StreamName identifies a single stream as a (category, id) pair. On the
// wire it is rendered as "category-id"; neither component may be empty, and
// Category may not itself contain a "-" (StreamID may).
type StreamName struct {
	Category string
	StreamID string
}

// NewStreamName validates and constructs a StreamName.
func NewStreamName(category, streamID string) (StreamName, error) {
	sn := StreamName{Category: category, StreamID: streamID}
	if err := sn.validate(); err != nil {
		return StreamName{}, err
	}
	return sn, nil
}

func (sn StreamName) validate() error {
	if sn.Category == "" {
		return fmt.Errorf("es: stream category must not be empty")
	}
	if sn.StreamID == "" {
		return fmt.Errorf("es: stream id must not be empty")
	}
	if strings.Contains(sn.Category, "-") {
		return fmt.Errorf("es: stream category %q must not contain '-'", sn.Category)
	}
	return nil
}

// String renders the wire form "category-id".
func (sn StreamName) String() string {
	return sn.Category + "-" + sn.StreamID
}

// ParseStreamName parses the wire form "category-id" produced by String.
// The category is everything up to the first "-"; the id is everything
// after it.
func ParseStreamName(wire string) (StreamName, error) {
	idx := strings.Index(wire, "-")
	if idx <= 0 || idx == len(wire)-1 {
		return StreamName{}, fmt.Errorf("es: malformed stream name %q", wire)
	}
	sn := StreamName{Category: wire[:idx], StreamID: wire[idx+1:]}
	if err := sn.validate(); err != nil {
		return StreamName{}, err
	}
	return sn, nil
}
