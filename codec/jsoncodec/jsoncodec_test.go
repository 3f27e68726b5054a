package jsoncodec_test

import (
	"context"
	"testing"

	"github.com/getpup/foldstore/codec/jsoncodec"
	"github.com/getpup/foldstore/es"
)

type added struct{ Name string }
type removed struct{ Name string }

type event struct {
	Added   *added
	Removed *removed
}

func newTestCodec() *jsoncodec.Codec[event] {
	return jsoncodec.New(
		jsoncodec.Registration[event]{
			Tag:     "Added",
			Matches: func(e event) bool { return e.Added != nil },
			Encode:  func(e event) ([]byte, error) { return []byte(e.Added.Name), nil },
			Decode:  func(b []byte) (event, error) { return event{Added: &added{Name: string(b)}}, nil },
		},
		jsoncodec.Registration[event]{
			Tag:     "Removed",
			Matches: func(e event) bool { return e.Removed != nil },
			Encode:  func(e event) ([]byte, error) { return []byte(e.Removed.Name), nil },
			Decode:  func(b []byte) (event, error) { return event{Removed: &removed{Name: string(b)}}, nil },
		},
	)
}

func TestCodec_EncodeDecodeRoundTrip(t *testing.T) {
	c := newTestCodec()
	ctx := context.Background()

	ed, err := c.Encode(ctx, event{Added: &added{Name: "a"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if ed.EventType != "Added" {
		t.Errorf("EventType = %q, want Added", ed.EventType)
	}

	decoded, ok, err := c.TryDecode(es.TimelineEvent{EventType: ed.EventType, Data: ed.Data})
	if err != nil || !ok {
		t.Fatalf("TryDecode: ok=%v err=%v", ok, err)
	}
	if decoded.Added == nil || decoded.Added.Name != "a" {
		t.Errorf("decoded = %+v, want Added.Name=a", decoded)
	}
}

func TestCodec_UnknownTypeSkips(t *testing.T) {
	c := newTestCodec()
	_, ok, err := c.TryDecode(es.TimelineEvent{EventType: "SomethingElse", Data: []byte("x")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for unrecognized event type")
	}
}

func TestNewJSON_RoundTrip(t *testing.T) {
	type renamed struct{ Name string }
	c := jsoncodec.NewJSON[renamed]("Renamed", func(renamed) bool { return true })
	ctx := context.Background()

	ed, err := c.Encode(ctx, renamed{Name: "b"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, ok, err := c.TryDecode(es.TimelineEvent{EventType: ed.EventType, Data: ed.Data})
	if err != nil || !ok {
		t.Fatalf("TryDecode: ok=%v err=%v", ok, err)
	}
	if decoded.Name != "b" {
		t.Errorf("decoded.Name = %q, want b", decoded.Name)
	}
}
