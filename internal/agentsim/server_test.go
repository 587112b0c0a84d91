package agentsim

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"arc/internal/retriever"
	"arc/internal/stream"
)

func TestScriptCoversTheFullRunShape(t *testing.T) {
	t.Parallel()

	events := Script("what is the refund policy?")
	if len(events) < 10 {
		t.Fatalf("script unexpectedly short: %d events", len(events))
	}
	if events[len(events)-1].Event != "done" {
		t.Fatalf("script must end with a done event, got %+v", events[len(events)-1])
	}
}

func TestSimulatedRunEndToEnd(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(NewServer(zerolog.Nop()).Handler())
	defer server.Close()

	client := stream.New(stream.Config{
		BaseURL: server.URL,
		Tenant:  "acme",
		Logger:  zerolog.Nop(),
	})
	r := retriever.New(retriever.Config{Transport: client, Logger: zerolog.Nop()})

	r.Submit(context.Background(), "what is the refund policy?")

	deadline := time.After(10 * time.Second)
	for {
		snapshot := r.Snapshot()
		if snapshot.Result != nil {
			if snapshot.Status != retriever.StatusIdle {
				t.Fatalf("status after result = %s", snapshot.Status)
			}
			if len(snapshot.Steps) != 2 {
				t.Fatalf("expected 2 client-reconstructed steps, got %d", len(snapshot.Steps))
			}
			if snapshot.Steps[0].Type != retriever.StepSearch || snapshot.Steps[1].Type != retriever.StepAnswer {
				t.Fatalf("unexpected step order: %s, %s", snapshot.Steps[0].Type, snapshot.Steps[1].Type)
			}
			if len(snapshot.Result.Evidence) != 1 || !snapshot.Result.Evidence[0].Validate() {
				t.Fatalf("final evidence invalid: %+v", snapshot.Result.Evidence)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("run did not complete, last snapshot: %+v", snapshot)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStreamRequiresQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(NewServer(zerolog.Nop()).Handler())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/agentic/stream")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 without query, got %d", resp.StatusCode)
	}
}
