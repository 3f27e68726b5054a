package es_test

import (
	"testing"

	"github.com/getpup/foldstore/es"
)

func TestStreamName_String(t *testing.T) {
	tests := []struct {
		name string
		sn   es.StreamName
		want string
	}{
		{"simple", es.StreamName{Category: "Favorites", StreamID: "ClientJ"}, "Favorites-ClientJ"},
		{"id contains dash", es.StreamName{Category: "Cart", StreamID: "a-b-c"}, "Cart-a-b-c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sn.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewStreamName_Validation(t *testing.T) {
	tests := []struct {
		name     string
		category string
		streamID string
		wantErr  bool
	}{
		{"valid", "Favorites", "ClientJ", false},
		{"empty category", "", "ClientJ", true},
		{"empty id", "Favorites", "", true},
		{"dash in category", "Fav-orites", "ClientJ", true},
		{"dash in id is fine", "Favorites", "Client-J", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := es.NewStreamName(tt.category, tt.streamID)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewStreamName(%q, %q) err = %v, wantErr %v", tt.category, tt.streamID, err, tt.wantErr)
			}
		})
	}
}

func TestParseStreamName_RoundTrip(t *testing.T) {
	sn, err := es.NewStreamName("Favorites", "Client-J")
	if err != nil {
		t.Fatalf("NewStreamName: %v", err)
	}
	got, err := es.ParseStreamName(sn.String())
	if err != nil {
		t.Fatalf("ParseStreamName: %v", err)
	}
	if got != sn {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, sn)
	}
}

func TestParseStreamName_Malformed(t *testing.T) {
	for _, wire := range []string{"", "noseparator", "-leadingdash", "trailing-"} {
		if _, err := es.ParseStreamName(wire); err == nil {
			t.Errorf("ParseStreamName(%q) expected error, got nil", wire)
		}
	}
}
