package control

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"mercator-hq/uidthrottle/pkg/audit"
	"mercator-hq/uidthrottle/pkg/identity"
	"mercator-hq/uidthrottle/pkg/store"
	"mercator-hq/uidthrottle/pkg/throttle"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testPlane struct {
	*Plane
	table  *throttle.Table
	store  *store.MemoryBackend
	audit  *audit.MemoryStore
	rec    *audit.Recorder
	engine *throttle.Engine
}

// newTestPlane builds a plane with in-memory persistence and auditing.
func newTestPlane(t *testing.T, capacity int) *testPlane {
	t.Helper()

	table, err := throttle.NewTable(capacity, discardLogger())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return newTestPlaneWithTable(t, table, capacity)
}

func newTestPlaneWithTable(t *testing.T, table *throttle.Table, capacity int) *testPlane {
	t.Helper()

	slots := identity.NewAllocator(capacity)
	engine := throttle.NewEngine(table, slots, throttle.DefaultConfig(), discardLogger())
	backend := store.NewMemoryBackend()
	auditStore := audit.NewMemoryStore()
	recorder := audit.NewRecorder(auditStore, nil)
	t.Cleanup(func() { recorder.Close() })

	plane := NewPlane(engine, slots, Options{
		Store:    backend,
		Recorder: recorder,
		Logger:   discardLogger(),
	})

	return &testPlane{
		Plane:  plane,
		table:  table,
		store:  backend,
		audit:  auditStore,
		rec:    recorder,
		engine: engine,
	}
}

// auditEntries flushes the recorder and returns what it wrote, newest first.
func (tp *testPlane) auditEntries(t *testing.T) []*audit.Entry {
	t.Helper()

	tp.rec.Close()
	entries, err := tp.audit.Query(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	return entries
}
