// Package agentsim emits a scripted agentic retrieval run over
// server-sent events. It backs the arcsim demo binary and the
// end-to-end tests, standing in for the real agent-orchestration
// backend.
package agentsim

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"arc/internal/retriever"
)

// ScriptedEvent is one SSE emission: an optional event name plus a data
// payload already serialized to JSON.
type ScriptedEvent struct {
	Event string
	Data  string
}

// Script builds the full frame sequence for one query: an agent
// transition, a plan step, a search step with chunked argument deltas,
// an answer step, the completion marker, and the final payload.
func Script(query string) []ScriptedEvent {
	documentID := uuid.NewString()
	searchCallID := "call_" + uuid.NewString()
	answerCallID := "call_" + uuid.NewString()

	events := []ScriptedEvent{
		envelope(map[string]any{
			"type":  "agent_updated_stream_event",
			"agent": map[string]any{"name": "retrieval-agent"},
		}),
		rawEvent(map[string]any{"type": "response.created"}),
		rawEvent(map[string]any{"type": "response.in_progress"}),
	}

	events = append(events, functionCall(searchCallID, "search", fmt.Sprintf(`{"query":%q}`, query))...)
	events = append(events, runItemStep(searchCallID, retriever.Step{
		Type:            retriever.StepSearch,
		Think:           "Search the tenant's documents for relevant passages.",
		CurrentQuestion: query,
		SearchRequests:  []retriever.SearchRequest{{Query: query}},
		QueryDetails: []retriever.QueryDetail{{
			Query: query,
			SearchResults: []retriever.SearchResult{{
				DocumentID:   documentID,
				DocumentName: "policies.pdf",
				Text:         "Refunds are accepted within 30 days of purchase.",
				Score:        0.87,
			}},
		}},
	})...)

	events = append(events, functionCall(answerCallID, "answer", `{"text":"Refunds are accepted within 30 days of purchase."}`)...)
	events = append(events, runItemStep(answerCallID, retriever.Step{
		Type:            retriever.StepAnswer,
		Think:           "The retrieved passage answers the question directly.",
		CurrentQuestion: query,
		Answer: &retriever.AnswerPayload{
			Text:     "Refunds are accepted within 30 days of purchase.",
			Evidence: []string{"0"},
		},
	})...)

	events = append(events,
		rawEvent(map[string]any{"type": "response.completed"}),
		finalPayload(query, documentID),
		ScriptedEvent{Event: "done", Data: "{}"},
	)
	return events
}

// functionCall emits the raw event sequence for one tool invocation,
// splitting the arguments into deltas so consumers exercise their
// partial-JSON path.
func functionCall(callID, name, arguments string) []ScriptedEvent {
	item := map[string]any{"type": "function_call", "name": name, "call_id": callID}
	events := []ScriptedEvent{
		rawEvent(map[string]any{"type": "response.output_item.added", "item": item}),
	}
	for _, delta := range splitDeltas(arguments, 7) {
		events = append(events, rawEvent(map[string]any{
			"type":  "response.function_call_arguments.delta",
			"delta": delta,
		}))
	}
	events = append(events,
		rawEvent(map[string]any{"type": "response.function_call_arguments.done"}),
		rawEvent(map[string]any{"type": "response.output_item.done", "item": item}),
	)
	return events
}

func runItemStep(callID string, step retriever.Step) []ScriptedEvent {
	return []ScriptedEvent{envelope(map[string]any{
		"type": "run_item_stream_event",
		"name": "tool_output",
		"item": map[string]any{
			"type":    "tool_call_output_item",
			"call_id": callID,
			"output":  step,
		},
	})}
}

func finalPayload(query, documentID string) ScriptedEvent {
	answer := retriever.FinalAnswer{
		Text: "Refunds are accepted within 30 days of purchase.",
		Evidence: []retriever.Evidence{{
			Type:         retriever.EvidenceRagie,
			DocumentID:   documentID,
			DocumentName: "policies.pdf",
			Metadata:     map[string]any{"page": float64(3)},
			Links: map[string]retriever.Link{
				"download": {HRef: "https://files.example.com/" + documentID, Type: "application/pdf"},
			},
		}},
		Steps: []retriever.Step{{
			Type:            retriever.StepPlan,
			Think:           "Plan retrieval for: " + query,
			CurrentQuestion: query,
			Plan:            []string{query},
		}},
		Diary: "planned, searched, answered",
		Usage: map[string]retriever.TokenCounts{
			"gpt-4o": {InputTokens: 812, OutputTokens: 96, TotalTokens: 908},
		},
	}
	return envelope(answer)
}

func envelope(payload any) ScriptedEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Script payloads are static shapes; a marshal failure is a bug.
		panic(err)
	}
	return ScriptedEvent{Data: string(raw)}
}

func rawEvent(data map[string]any) ScriptedEvent {
	return envelope(map[string]any{"type": "raw_response_event", "data": data})
}

func splitDeltas(s string, size int) []string {
	if size <= 0 || s == "" {
		return []string{s}
	}
	var chunks []string
	for len(s) > size {
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	return append(chunks, s)
}
