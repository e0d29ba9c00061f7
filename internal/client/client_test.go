package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talgya/zoneforge/internal/api"
	"github.com/talgya/zoneforge/internal/catalog"
)

const pairJSON = `{"name": "pair", "roads": 100,
	"zones": [{"id": 0, "type": "start", "size": 10}, {"id": 1, "type": "start", "size": 10}],
	"connections": [{"from": 0, "to": 1}]}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := &api.Server{
		Jobs:     api.NewJobManager(catalog.Default(), nil, 1),
		AdminKey: "k",
	}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.Jobs.Wait()
		ts.Close()
		s.Close()
	})
	return ts
}

func TestSubmitWatchPreview(t *testing.T) {
	ts := newServer(t)
	c := New(ts.URL+"/", "k")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}

	for seed := int64(1); seed <= 12; seed++ {
		view, err := c.Submit(SubmitRequest{Template: json.RawMessage(pairJSON), Size: 48, Seed: seed})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		var seen int
		last, err := c.Watch(ctx, view.ID, func(api.JobEvent) { seen++ })
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
		if seen == 0 || !last.Status.Finished() {
			t.Fatalf("watched %d events, last %+v", seen, last)
		}
		if last.Status != api.JobDone {
			continue
		}

		preview, err := c.Preview(view.ID)
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		if strings.Count(preview, "\n") != 48 {
			t.Errorf("preview has %d lines", strings.Count(preview, "\n"))
		}
		st, err := c.Status()
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if st.Name != "zoneforge" || st.Jobs[api.JobDone] < 1 {
			t.Errorf("status = %+v", st)
		}
		return
	}
	t.Fatal("no seed generated the pair template")
}

func TestSubmitRejected(t *testing.T) {
	ts := newServer(t)
	c := New(ts.URL, "wrong")
	if _, err := c.Submit(SubmitRequest{Template: json.RawMessage(pairJSON), Size: 48}); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if _, err := New(ts.URL, "k").Preview("missing"); err == nil {
		t.Error("expected preview error for unknown map")
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := c.WaitReady(ctx); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
