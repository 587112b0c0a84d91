package retriever

// Status is the run lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// State is the full reducer state for one run. Steps is append-only;
// Buffer accumulates partial JSON for the currently open tool call and
// is never part of the durable step history.
type State struct {
	Query           string
	Status          Status
	CurrentStepType Activity
	Steps           []Step
	Result          *FinalAnswer
	Err             string

	Buffer      string
	CurrentTool string
}

// NewState returns the initial idle state.
func NewState() State {
	return State{Status: StatusIdle, CurrentStepType: ActivityThink}
}

// Reduce folds one action into the state. It is total over the action
// vocabulary: unknown or out-of-order actions leave the state unchanged.
func Reduce(state State, action Action) State {
	switch action.Type {
	case ActionSetQuery:
		// Identical query while already tracked is a duplicate
		// submission and must not restart the run. A failed run is the
		// exception: resubmitting the same question retries it.
		if action.Query == state.Query && state.Status != StatusError {
			return state
		}
		next := NewState()
		next.Query = action.Query
		next.Status = StatusLoading
		return next

	case ActionTakeRunItem:
		if state.Status != StatusLoading || action.Step == nil {
			return state
		}
		next := state
		next.Steps = appendStep(state.Steps, *action.Step)
		return next

	case ActionTakeRawResponse:
		if state.Status != StatusLoading || action.Raw == nil {
			return state
		}
		return reduceRawResponse(state, *action.Raw)

	case ActionTakeAgentUpdated:
		// Recorded for diagnostics at decode time; no run-visible state.
		return state

	case ActionFinish:
		// Guards against late or duplicate completion frames after a
		// reset or retry.
		if state.Status != StatusLoading {
			return state
		}
		next := state
		next.Status = StatusIdle
		next.Result = action.Result
		next.Buffer = ""
		next.CurrentTool = ""
		return next

	case ActionReset:
		// Resetting a run that never started (or already finished)
		// would silently discard a result the UI has not read yet. A
		// failed run holds nothing worth keeping, so it clears too.
		if state.Status != StatusLoading && state.Status != StatusError {
			return state
		}
		return NewState()

	case ActionSetError:
		if state.Status != StatusLoading {
			return state
		}
		next := state
		next.Status = StatusError
		if action.Err != nil {
			next.Err = action.Err.Error()
		} else {
			next.Err = "stream error"
		}
		return next

	default:
		return state
	}
}

func reduceRawResponse(state State, event RawResponseEvent) State {
	switch event.Type {
	case RawOutputItemAdded:
		if event.Item == nil || event.Item.Type != outputItemFunctionCall {
			return state
		}
		next := state
		next.Buffer = ""
		next.CurrentTool = event.Item.Name
		next.CurrentStepType = activityForTool(event.Item.Name)
		return next

	case RawArgumentsDelta:
		next := state
		next.Buffer = state.Buffer + event.Delta
		return next

	case RawArgumentsDone:
		// The completed call arrives as a run item; the volatile
		// preview buffer is discarded, not promoted.
		next := state
		next.Buffer = ""
		return next

	case RawOutputItemDone:
		if event.Item == nil || event.Item.Type != outputItemFunctionCall {
			return state
		}
		next := state
		next.Buffer = ""
		return next

	default:
		// created/in_progress/output_text.delta/completed are
		// informational for the preview channel.
		return state
	}
}

// appendStep appends without sharing the backing array, so previously
// handed-out snapshots can never observe later mutations.
func appendStep(steps []Step, step Step) []Step {
	next := make([]Step, 0, len(steps)+1)
	next = append(next, steps...)
	return append(next, step)
}
