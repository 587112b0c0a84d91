package retriever

import (
	"encoding/json"
	"strings"
)

// StepType discriminates completed step variants.
type StepType string

const (
	StepPlan            StepType = "plan"
	StepSearch          StepType = "search"
	StepCode            StepType = "code"
	StepAnswer          StepType = "answer"
	StepEvaluatedAnswer StepType = "evaluated_answer"
	StepSurrender       StepType = "surrender"
	StepCitation        StepType = "citation"
)

// SearchRequest is one search the agent decided to issue.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResult is one retrieved chunk inside a query detail.
type SearchResult struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name,omitempty"`
	Text         string  `json:"text,omitempty"`
	Score        float64 `json:"score,omitempty"`
}

// QueryDetail pairs an executed search query with its results.
type QueryDetail struct {
	Query         string         `json:"query"`
	SearchResults []SearchResult `json:"search_results,omitempty"`
}

// AnswerPayload is the answer-shaped object carried by answer,
// evaluated_answer, surrender, and citation steps.
type AnswerPayload struct {
	Text     string   `json:"text"`
	Evidence []string `json:"evidence,omitempty"`
}

// Step is one completed tool invocation within a run. Variants share the
// think/current_question fields and carry variant-specific payload fields;
// Validate enforces the per-variant shape.
type Step struct {
	Type            StepType `json:"type"`
	Think           string   `json:"think,omitempty"`
	CurrentQuestion string   `json:"current_question,omitempty"`

	Plan []string `json:"plan,omitempty"`

	SearchRequests []SearchRequest `json:"search_requests,omitempty"`
	QueryDetails   []QueryDetail   `json:"query_details,omitempty"`

	Code   string `json:"code,omitempty"`
	Issue  string `json:"issue,omitempty"`
	Result string `json:"result,omitempty"`

	Answer *AnswerPayload `json:"answer,omitempty"`
}

// Validate reports whether the step carries the payload its type requires.
func (s Step) Validate() bool {
	switch s.Type {
	case StepPlan:
		return true
	case StepSearch:
		return len(s.SearchRequests) > 0 || len(s.QueryDetails) > 0
	case StepCode:
		return strings.TrimSpace(s.Code) != "" || strings.TrimSpace(s.Result) != ""
	case StepAnswer, StepEvaluatedAnswer, StepSurrender, StepCitation:
		return s.Answer != nil
	default:
		return false
	}
}

// EvidenceType discriminates evidence variants.
type EvidenceType string

const (
	EvidenceCode  EvidenceType = "code"
	EvidenceRagie EvidenceType = "ragie"
)

// Link is one named hyperlink attached to a retrieved document.
type Link struct {
	HRef string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Evidence is a unit of supporting material referenced by a final answer:
// either an embedded code execution or a retrieved document chunk.
type Evidence struct {
	Type EvidenceType `json:"type"`

	Code   string `json:"code,omitempty"`
	Issue  string `json:"issue,omitempty"`
	Result string `json:"result,omitempty"`

	DocumentID       string          `json:"document_id,omitempty"`
	DocumentName     string          `json:"document_name,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	DocumentMetadata map[string]any  `json:"document_metadata,omitempty"`
	Links            map[string]Link `json:"links,omitempty"`
	Text             string          `json:"text,omitempty"`
}

// Validate reports whether the evidence carries its variant payload.
func (e Evidence) Validate() bool {
	switch e.Type {
	case EvidenceCode:
		return strings.TrimSpace(e.Code) != "" || strings.TrimSpace(e.Result) != ""
	case EvidenceRagie:
		return strings.TrimSpace(e.DocumentID) != ""
	default:
		return false
	}
}

// TokenCounts is one model's token usage within a run.
type TokenCounts struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// FinalAnswer is the terminal payload of a successful run. The steps field
// is the server's own trace, distinct from the client-reconstructed list.
type FinalAnswer struct {
	Text     string                 `json:"text"`
	Evidence []Evidence             `json:"evidence"`
	Steps    []Step                 `json:"steps,omitempty"`
	Diary    string                 `json:"diary,omitempty"`
	Usage    map[string]TokenCounts `json:"usage,omitempty"`
}

// parseStep decodes and validates a Step from raw JSON.
func parseStep(raw json.RawMessage) (Step, bool) {
	if len(raw) == 0 {
		return Step{}, false
	}
	var step Step
	if err := json.Unmarshal(raw, &step); err != nil {
		return Step{}, false
	}
	if !step.Validate() {
		return Step{}, false
	}
	return step, true
}

// parseFinalAnswer decodes a FinalAnswer, requiring the fields that make
// the payload recognizable as a terminal result.
func parseFinalAnswer(raw []byte) (*FinalAnswer, bool) {
	var answer FinalAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, false
	}
	if strings.TrimSpace(answer.Text) == "" || answer.Evidence == nil {
		return nil, false
	}
	return &answer, true
}
