package recordstore

import (
	"context"
	"errors"
	"testing"
	"time"

	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

func sampleRecord(server string) *sequencer.MaintenanceRecord {
	return &sequencer.MaintenanceRecord{
		Server:  server,
		Partner: "mbx02",
		Policy:  cp.PolicyIntrasiteOnly,
		RunID:   "run-123",
		SavedAt: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}
}

func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "MBX01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := sampleRecord("MBX01")
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Lookup case-insensitive (la clave se normaliza).
	got, err := s.Get(ctx, "mbx01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Policy != cp.PolicyIntrasiteOnly || got.Partner != "mbx02" || got.RunID != "run-123" {
		t.Fatalf("record mismatch: %+v", got)
	}

	// Overwrite: gana el último save.
	rec2 := sampleRecord("mbx01")
	rec2.Policy = cp.PolicyUnrestricted
	if err := s.Save(ctx, rec2); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, err = s.Get(ctx, "mbx01")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got.Policy != cp.PolicyUnrestricted {
		t.Fatalf("overwrite lost: %+v", got)
	}

	if err := s.Delete(ctx, "mbx01"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "mbx01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Delete idempotente.
	if err := s.Delete(ctx, "mbx01"); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
}

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()
	roundTrip(t, NewMemory())
}

func TestFS_RoundTrip(t *testing.T) {
	t.Parallel()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	roundTrip(t, s)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	ctx := context.Background()
	rec := sampleRecord("mbx01")
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Policy = cp.PolicyBlocked // mutar el original no toca lo guardado

	got, err := s.Get(ctx, "mbx01")
	if err != nil {
		t.Fatal(err)
	}
	if got.Policy != cp.PolicyIntrasiteOnly {
		t.Fatalf("stored record aliased the caller's pointer: %+v", got)
	}
}

func TestOpen_Kinds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, Options{Kind: "none"})
	if err != nil || s != nil {
		t.Fatalf("none should be nil store, got %v %v", s, err)
	}
	if s, err = Open(ctx, Options{Kind: "memory"}); err != nil || s == nil {
		t.Fatalf("memory: %v", err)
	}
	if s, err = Open(ctx, Options{Kind: "fs", FSDir: t.TempDir()}); err != nil || s == nil {
		t.Fatalf("fs: %v", err)
	}
	if _, err = Open(ctx, Options{Kind: "bogus"}); err == nil {
		t.Fatal("unknown kind should fail")
	}
}
