package progress

import (
	"bytes"
	"strings"
	"testing"
)

func ev(seq int, status Status, detail string) Event {
	return Event{
		Seq: seq, RunID: "r1", Plan: "enter-maintenance",
		Server: "mbx01", Step: "drain-transport",
		Label: "Draining hub transport", Status: status, Detail: detail,
	}
}

func TestConsoleSink_OneLinePerTransition(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := &ConsoleSink{W: &buf}

	c.Emit(ev(1, StatusRunning, ""))
	c.Emit(ev(2, StatusWaiting, "2 still mounted: DB01, DB02"))
	c.Emit(ev(3, StatusOK, ""))
	c.Emit(ev(4, StatusWarned, "access denied"))
	c.Emit(ev(5, StatusSkipped, "no replication group found"))
	c.Emit(ev(6, StatusFailed, "boom"))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}
	checks := []string{
		"[mbx01] Draining hub transport...",
		"2 still mounted",
		": ok",
		"WARNING: access denied",
		"skipped (no replication group found)",
		"FAILED: boom",
	}
	for i, want := range checks {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d %q missing %q", i, lines[i], want)
		}
	}
}

func TestMemorySink_KeepsOrder(t *testing.T) {
	t.Parallel()
	m := &MemorySink{}
	for i := 1; i <= 5; i++ {
		m.Emit(ev(i, StatusOK, ""))
	}
	evs := m.Events()
	if len(evs) != 5 {
		t.Fatalf("got %d events", len(evs))
	}
	for i, e := range evs {
		if e.Seq != i+1 {
			t.Fatalf("order lost at %d: %+v", i, e)
		}
	}
	// Events devuelve copia: mutar el slice no toca el buffer.
	evs[0].Seq = 99
	if m.Events()[0].Seq != 1 {
		t.Fatal("Events must return a copy")
	}
}

func TestMulti_FansOut(t *testing.T) {
	t.Parallel()
	a, b := &MemorySink{}, &MemorySink{}
	s := Multi(a, nil, b)
	s.Emit(ev(1, StatusOK, ""))
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatal("multi should fan out to all non-nil sinks")
	}
}
