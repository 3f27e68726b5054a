// Package integration_test exercises the sqlite adapter against a real,
// embedded SQLite database file.
//
// Run with: go test -tags=integration ./es/adapters/sqlite/integration_test/...
//
//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/getpup/foldstore/es"
	"github.com/getpup/foldstore/es/adapters/relational"
	"github.com/getpup/foldstore/es/adapters/sqlite"
	"github.com/getpup/foldstore/es/store"
)

func getTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbFile := fmt.Sprintf("/tmp/foldstore_test_%d.db", time.Now().UnixNano())
	t.Cleanup(func() { os.Remove(dbFile) })

	db, err := sqlite.Open(dbFile)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := sqlite.EnsureSchema(db, ""); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}

func TestSqliteStore_AppendAndLoadForward(t *testing.T) {
	ctx := context.Background()
	db := getTestDB(t)
	adapter := sqlite.New(db, relational.Config{BatchSize: 500})

	stream, _ := es.NewStreamName("Favorites", "ClientJ")
	ed := es.EventData{EventID: uuid.New(), EventType: "Added", Data: []byte("a")}

	newVersion, err := adapter.Append(ctx, stream, store.NoStream(), []es.EventData{ed})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if newVersion != 0 {
		t.Errorf("newVersion = %d, want 0", newVersion)
	}

	version, events, err := adapter.LoadForward(ctx, stream, 0, false)
	if err != nil {
		t.Fatalf("LoadForward: %v", err)
	}
	if version != 0 || len(events) != 1 || string(events[0].Data) != "a" {
		t.Errorf("version=%d events=%+v, want version=0 one event 'a'", version, events)
	}
}

func TestSqliteStore_AppendConflict(t *testing.T) {
	ctx := context.Background()
	db := getTestDB(t)
	adapter := sqlite.New(db, relational.Config{BatchSize: 500})

	stream, _ := es.NewStreamName("Favorites", "ClientK")
	ed := es.EventData{EventID: uuid.New(), EventType: "Added", Data: []byte("a")}
	if _, err := adapter.Append(ctx, stream, store.NoStream(), []es.EventData{ed}); err != nil {
		t.Fatalf("first append: %v", err)
	}

	_, err := adapter.Append(ctx, stream, store.NoStream(), []es.EventData{ed})
	if err != store.ErrVersionConflict {
		t.Fatalf("second append err = %v, want ErrVersionConflict", err)
	}
}

func TestSqliteStore_LoadBackwardUntilOrigin(t *testing.T) {
	ctx := context.Background()
	db := getTestDB(t)
	adapter := sqlite.New(db, relational.Config{BatchSize: 500})

	stream, _ := es.NewStreamName("Favorites", "ClientL")
	events := []es.EventData{
		{EventID: uuid.New(), EventType: "Added", Data: []byte("a")},
		{EventID: uuid.New(), EventType: "Snapshot", Data: []byte("snap")},
		{EventID: uuid.New(), EventType: "Added", Data: []byte("b")},
	}
	if _, err := adapter.Append(ctx, stream, store.NoStream(), events); err != nil {
		t.Fatalf("append: %v", err)
	}

	version, got, err := adapter.LoadBackwardUntil(ctx, stream, false, func(evt es.TimelineEvent) (bool, error) {
		return evt.EventType == "Snapshot", nil
	})
	if err != nil {
		t.Fatalf("LoadBackwardUntil: %v", err)
	}
	if version != 2 || len(got) != 2 || got[0].EventType != "Snapshot" || got[1].EventType != "Added" {
		t.Errorf("version=%d got=%+v, want version=2 [Snapshot, Added]", version, got)
	}
}
