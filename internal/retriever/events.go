package retriever

import "encoding/json"

// Envelope discriminators for inbound stream frames.
const (
	EnvelopeAgentUpdated = "agent_updated_stream_event"
	EnvelopeRunItem      = "run_item_stream_event"
	EnvelopeRawResponse  = "raw_response_event"
)

// RunItemType discriminates assembled run items.
type RunItemType string

const (
	RunItemMessageOutput      RunItemType = "message_output_item"
	RunItemToolCall           RunItemType = "tool_call_item"
	RunItemToolCallOutput     RunItemType = "tool_call_output_item"
	RunItemHandoffCall        RunItemType = "handoff_call_item"
	RunItemHandoffOutput      RunItemType = "handoff_output_item"
	RunItemReasoning          RunItemType = "reasoning_item"
	RunItemMCPListTools       RunItemType = "mcp_list_tools_item"
	RunItemMCPApprovalRequest RunItemType = "mcp_approval_request_item"
	RunItemMCPApprovalReply   RunItemType = "mcp_approval_response_item"
)

// knownRunItemTypes closes the run-item union for validation.
var knownRunItemTypes = map[RunItemType]bool{
	RunItemMessageOutput:      true,
	RunItemToolCall:           true,
	RunItemToolCallOutput:     true,
	RunItemHandoffCall:        true,
	RunItemHandoffOutput:      true,
	RunItemReasoning:          true,
	RunItemMCPListTools:       true,
	RunItemMCPApprovalRequest: true,
	RunItemMCPApprovalReply:   true,
}

// RunItem is a higher-level unit emitted once a raw event sequence
// completes: message, tool call, tool call output, handoff, reasoning,
// or one of the MCP variants.
type RunItem struct {
	Type   RunItemType     `json:"type"`
	Name   string          `json:"name,omitempty"`
	CallID string          `json:"call_id,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Raw    json.RawMessage `json:"raw_item,omitempty"`
}

// Validate reports whether the item belongs to the closed union.
func (i RunItem) Validate() bool {
	return knownRunItemTypes[i.Type]
}

// RawEventType discriminates low-level response events.
type RawEventType string

const (
	RawResponseCreated    RawEventType = "response.created"
	RawResponseInProgress RawEventType = "response.in_progress"
	RawOutputItemAdded    RawEventType = "response.output_item.added"
	RawOutputItemDone     RawEventType = "response.output_item.done"
	RawArgumentsDelta     RawEventType = "response.function_call_arguments.delta"
	RawArgumentsDone      RawEventType = "response.function_call_arguments.done"
	RawOutputTextDelta    RawEventType = "response.output_text.delta"
	RawResponseCompleted  RawEventType = "response.completed"
)

// knownRawEventTypes closes the raw response event union for validation.
var knownRawEventTypes = map[RawEventType]bool{
	RawResponseCreated:    true,
	RawResponseInProgress: true,
	RawOutputItemAdded:    true,
	RawOutputItemDone:     true,
	RawArgumentsDelta:     true,
	RawArgumentsDone:      true,
	RawOutputTextDelta:    true,
	RawResponseCompleted:  true,
}

// outputItemFunctionCall is the item type whose argument stream drives
// the live preview.
const outputItemFunctionCall = "function_call"

// OutputItem is the nested item inside output_item.added/done events.
type OutputItem struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// RawResponseEvent is the lowest-level token/tool-call-delta event from
// the agent-orchestration backend.
type RawResponseEvent struct {
	Type  RawEventType `json:"type"`
	Item  *OutputItem  `json:"item,omitempty"`
	Delta string       `json:"delta,omitempty"`
}

// Validate reports whether the event belongs to the closed union and
// carries the payload its type requires.
func (e RawResponseEvent) Validate() bool {
	if !knownRawEventTypes[e.Type] {
		return false
	}
	switch e.Type {
	case RawOutputItemAdded, RawOutputItemDone:
		return e.Item != nil
	default:
		return true
	}
}

// AgentUpdate carries the active agent after a handoff transition.
type AgentUpdate struct {
	Name string `json:"name"`
}

// Activity is the coarse label shown while the run is loading.
type Activity string

const (
	ActivityThink  Activity = "think"
	ActivitySearch Activity = "search"
	ActivityCode   Activity = "code"
	ActivityAnswer Activity = "answer"
)

// activityForTool maps a function-call tool name to its activity label.
// Unmapped tools default to think.
func activityForTool(name string) Activity {
	switch name {
	case "reflect":
		return ActivityThink
	case "search":
		return ActivitySearch
	case "code":
		return ActivityCode
	case "answer", "transfer_to_citation", "transfer_to_surrender":
		return ActivityAnswer
	default:
		return ActivityThink
	}
}
