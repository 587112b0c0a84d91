package retriever

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// ActionType names the reducer's dispatch vocabulary.
type ActionType string

const (
	ActionSetQuery         ActionType = "SET_QUERY"
	ActionTakeRunItem      ActionType = "TAKE_RUN_ITEM"
	ActionTakeRawResponse  ActionType = "TAKE_RAW_RESPONSE"
	ActionTakeAgentUpdated ActionType = "TAKE_AGENT_UPDATED"
	ActionFinish           ActionType = "FINISH"
	ActionReset            ActionType = "RESET"
	ActionSetError         ActionType = "SET_ERROR"
)

// Action is one decoded unit of work for the reducer.
type Action struct {
	Type   ActionType
	Query  string
	Step   *Step
	Item   *RunItem
	Raw    *RawResponseEvent
	Agent  string
	Result *FinalAnswer
	Err    error
}

// Decoder classifies raw inbound frames into reducer actions. It never
// fails loudly: frames it cannot place are logged and dropped.
type Decoder struct {
	log zerolog.Logger
}

// NewDecoder constructs a decoder that reports dropped frames to log.
func NewDecoder(log zerolog.Logger) Decoder {
	return Decoder{log: log}
}

// Decode converts one raw frame into zero or one action. The second
// return is false when the frame was dropped.
func (d Decoder) Decode(frame string) (Action, bool) {
	payload := []byte(frame)
	if !gjson.ValidBytes(payload) {
		d.log.Warn().Str("frame", truncateForLog(frame)).Msg("dropping non-json frame")
		return Action{}, false
	}

	switch envelope := gjson.GetBytes(payload, "type").String(); envelope {
	case EnvelopeAgentUpdated:
		return d.decodeAgentUpdated(payload)
	case EnvelopeRunItem:
		return d.decodeRunItem(payload)
	case EnvelopeRawResponse:
		return d.decodeRawResponse(payload)
	case "":
		// The explicit final payload arrives without an envelope type.
		if answer, ok := parseFinalAnswer(payload); ok {
			return Action{Type: ActionFinish, Result: answer}, true
		}
		d.log.Warn().Str("frame", truncateForLog(frame)).Msg("dropping frame without envelope type")
		return Action{}, false
	default:
		d.log.Warn().Str("envelope", envelope).Msg("dropping frame with unknown envelope type")
		return Action{}, false
	}
}

func (d Decoder) decodeAgentUpdated(payload []byte) (Action, bool) {
	var envelope struct {
		Agent AgentUpdate `json:"agent"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		d.log.Warn().Err(err).Msg("dropping malformed agent_updated_stream_event")
		return Action{}, false
	}
	d.log.Debug().Str("agent", envelope.Agent.Name).Msg("agent transition")
	return Action{Type: ActionTakeAgentUpdated, Agent: envelope.Agent.Name}, true
}

func (d Decoder) decodeRunItem(payload []byte) (Action, bool) {
	var envelope struct {
		Name string  `json:"name"`
		Item RunItem `json:"item"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		d.log.Warn().Err(err).Msg("dropping malformed run_item_stream_event")
		return Action{}, false
	}
	if !envelope.Item.Validate() {
		d.log.Warn().Str("item_type", string(envelope.Item.Type)).Msg("dropping run item outside the known union")
		return Action{}, false
	}

	action := Action{Type: ActionTakeRunItem, Item: &envelope.Item}
	if envelope.Item.Type == RunItemToolCallOutput {
		if step, ok := parseStep(envelope.Item.Output); ok {
			action.Step = &step
		} else {
			d.log.Debug().Str("call_id", envelope.Item.CallID).Msg("tool output is not a step; recording item only")
		}
	}
	return action, true
}

func (d Decoder) decodeRawResponse(payload []byte) (Action, bool) {
	var envelope struct {
		Data RawResponseEvent `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		d.log.Warn().Err(err).Msg("dropping malformed raw_response_event")
		return Action{}, false
	}
	if !envelope.Data.Validate() {
		d.log.Warn().Str("event_type", string(envelope.Data.Type)).Msg("dropping raw response event outside the known union")
		return Action{}, false
	}
	return Action{Type: ActionTakeRawResponse, Raw: &envelope.Data}, true
}

const logFrameLimit = 200

func truncateForLog(frame string) string {
	if len(frame) <= logFrameLimit {
		return frame
	}
	return frame[:logFrameLimit] + "..."
}
