package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/mailmaint/internal/progress"
)

func TestStatus_ServesEventsAndHealth(t *testing.T) {
	t.Parallel()
	mem := &progress.MemorySink{}
	mem.Emit(progress.Event{Seq: 1, Plan: "enter-maintenance", Server: "mbx01", Step: "drain-transport", Status: progress.StatusRunning})
	mem.Emit(progress.Event{Seq: 2, Plan: "enter-maintenance", Server: "mbx01", Step: "drain-transport", Status: progress.StatusOK})

	s := &StatusServer{Addr: ":0", Sink: mem}
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", err, resp)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Count  int              `json:"count"`
		Events []progress.Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 || len(body.Events) != 2 {
		t.Fatalf("expected 2 events, got %+v", body)
	}
	if body.Events[1].Status != progress.StatusOK {
		t.Fatalf("event order lost: %+v", body.Events)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %v %v", err, resp)
	}
	resp.Body.Close()
}
