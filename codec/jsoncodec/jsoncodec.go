// Package jsoncodec is the reference es.Codec implementation shipped with
// this module: it maps each application event to a body tagged by the type
// tag its Registration supplies; NewJSON builds that body with
// encoding/json. No
// third-party JSON library is directly required by any repo in the
// retrieved corpus for this concern, so this one package in the core's
// reference-implementation surface is built on the standard library; see
// DESIGN.md.
package jsoncodec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/getpup/foldstore/es"
)

// Codec is a generic es.Codec[E] backed by a closed map of known event
// types: a union type E (typically an interface or a tagged struct)
// dispatches to one of the registered encode/decode pairs by type tag.
//
// Unlike a single concrete struct type, most event-sourced domains define
// several event shapes per stream; Codec supports that by keying on a
// type tag supplied per-registration rather than assuming one struct.
type Codec[E any] struct {
	encoders map[string]func(E) ([]byte, error)
	decoders map[string]func([]byte) (E, error)
	tagOf    func(E) string
}

// Registration associates one event's Go-level identity with its wire
// type tag and (de)serialization functions.
type Registration[E any] struct {
	Tag     string
	Matches func(E) bool
	Encode  func(E) ([]byte, error)
	Decode  func([]byte) (E, error)
}

// New builds a Codec from a set of Registrations. Events are matched for
// encoding by trying each Registration's Matches in order; decoding
// dispatches directly on the wire type tag.
func New[E any](regs ...Registration[E]) *Codec[E] {
	c := &Codec[E]{
		encoders: make(map[string]func(E) ([]byte, error)),
		decoders: make(map[string]func([]byte) (E, error)),
	}
	matchers := make([]Registration[E], len(regs))
	copy(matchers, regs)
	c.tagOf = func(e E) string {
		for _, r := range matchers {
			if r.Matches(e) {
				return r.Tag
			}
		}
		return ""
	}
	for _, r := range regs {
		c.encoders[r.Tag] = r.Encode
		c.decoders[r.Tag] = r.Decode
	}
	return c
}

// NewJSON builds a Codec where every registration's Encode/Decode is
// encoding/json's Marshal/Unmarshal against a concrete Go type, the
// common case for a single-struct event type E.
func NewJSON[E any](tag string, matches func(E) bool) *Codec[E] {
	return New(Registration[E]{
		Tag:     tag,
		Matches: matches,
		Encode: func(e E) ([]byte, error) {
			return json.Marshal(e)
		},
		Decode: func(data []byte) (E, error) {
			var e E
			err := json.Unmarshal(data, &e)
			return e, err
		},
	})
}

// Encode implements es.Codec.
func (c *Codec[E]) Encode(_ context.Context, e E) (es.EventData, error) {
	tag := c.tagOf(e)
	enc, ok := c.encoders[tag]
	if !ok {
		return es.EventData{}, fmt.Errorf("jsoncodec: no registration matches event %#v", e)
	}
	data, err := enc(e)
	if err != nil {
		return es.EventData{}, fmt.Errorf("jsoncodec: encode %s: %w", tag, err)
	}
	return es.EventData{
		EventID:   uuid.New(),
		EventType: tag,
		Data:      data,
	}, nil
}

// TryDecode implements es.Codec. An unrecognized EventType is a skip (ok
// false, err nil); a recognized type that fails to unmarshal is a
// terminal failure.
func (c *Codec[E]) TryDecode(evt es.TimelineEvent) (E, bool, error) {
	var zero E
	dec, ok := c.decoders[evt.EventType]
	if !ok {
		return zero, false, nil
	}
	e, err := dec(evt.Data)
	if err != nil {
		return zero, false, fmt.Errorf("jsoncodec: decode %s: %w", evt.EventType, err)
	}
	return e, true, nil
}

var _ es.Codec[int] = (*Codec[int])(nil)
