// Package retriever reconstructs agentic retrieval runs from the
// backend's server-sent-event stream: it decodes heterogeneous JSON
// frames, folds them into an ordered step timeline with a live partial
// preview, and exposes the run state to rendering consumers.
package retriever

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"arc/internal/partialjson"
	"arc/internal/stream"
)

// Transport abstracts the SSE client so tests can drive the retriever
// with injected frames.
type Transport interface {
	Stream(ctx context.Context, query string) (<-chan stream.Frame, error)
}

// CurrentResponse is the best-effort reconstruction of the in-flight
// tool call, rebuilt from the partial argument buffer on every snapshot.
type CurrentResponse struct {
	Tool      string
	Arguments map[string]any
}

// Snapshot is the reactive object handed to rendering consumers. Steps
// is append-only and never aliases live reducer state; Result is the
// sole termination signal.
type Snapshot struct {
	Query           string
	Status          Status
	CurrentStepType Activity
	Steps           []Step
	Result          *FinalAnswer
	Err             string
	CurrentResponse *CurrentResponse
}

// Config wires a retriever instance. One instance serves one consumer;
// there is no ambient shared retriever.
type Config struct {
	Transport Transport
	Logger    zerolog.Logger
}

// Retriever owns one run's state and at most one live connection.
// Submit and Reset never fail loudly: transport failures surface only
// through the error status.
type Retriever struct {
	transport Transport
	decoder   Decoder
	log       zerolog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	// gen invalidates frames still buffered from a superseded
	// connection; at most one generation is ever live.
	gen int

	updates chan Snapshot
}

// New constructs a retriever around the given transport.
func New(cfg Config) *Retriever {
	return &Retriever{
		transport: cfg.Transport,
		decoder:   NewDecoder(cfg.Logger),
		log:       cfg.Logger,
		state:     NewState(),
		updates:   make(chan Snapshot, 1),
	}
}

// Updates delivers a snapshot after every state change. Intermediate
// snapshots may be coalesced; the latest one is always retained.
func (r *Retriever) Updates() <-chan Snapshot {
	return r.updates
}

// Snapshot returns the current run state, with the partial preview
// materialized from the in-progress buffer.
func (r *Retriever) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshotOf(r.state)
}

// Submit starts a run for query. Submitting the identical query while
// one is already tracked is a no-op, unless the previous attempt
// errored: then the same query retries it. A different query closes
// any live connection and starts fresh.
func (r *Retriever) Submit(ctx context.Context, query string) {
	r.mu.Lock()
	if query == r.state.Query && r.state.Status != StatusError {
		r.mu.Unlock()
		return
	}

	r.closeConnectionLocked()
	r.state = Reduce(r.state, Action{Type: ActionReset})
	r.state = Reduce(r.state, Action{Type: ActionSetQuery, Query: query})
	snapshot := snapshotOf(r.state)

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	r.publish(snapshot)

	frames, err := r.transport.Stream(runCtx, query)
	if err != nil {
		r.dispatch(gen, Action{Type: ActionSetError, Err: err})
		return
	}
	go r.consume(gen, frames)
}

// Reset cancels any in-flight run and returns to idle. It is honored
// while loading or after an error, matching the reducer's reset guard;
// an unread completed result is never discarded.
func (r *Retriever) Reset() {
	r.mu.Lock()
	if r.state.Status != StatusLoading && r.state.Status != StatusError {
		r.mu.Unlock()
		return
	}
	r.closeConnectionLocked()
	r.gen++
	r.state = Reduce(r.state, Action{Type: ActionReset})
	snapshot := snapshotOf(r.state)
	r.mu.Unlock()

	r.publish(snapshot)
}

// consume is the single-threaded fold: frames arrive in wire order and
// each one passes through the decoder and reducer synchronously.
func (r *Retriever) consume(gen int, frames <-chan stream.Frame) {
	for frame := range frames {
		switch frame.Type {
		case stream.FrameData:
			action, ok := r.decoder.Decode(frame.Data)
			if !ok {
				continue
			}
			r.dispatch(gen, action)
		case stream.FrameError:
			r.dispatch(gen, Action{Type: ActionSetError, Err: frame.Err})
		case stream.FrameDone:
			// Natural closure carries no completion semantics; the
			// final payload or completed marker already did.
			r.log.Debug().Msg("stream closed")
		}
	}
}

// dispatch folds one action and publishes the resulting snapshot when
// the state changed. Actions from superseded connections are dropped.
func (r *Retriever) dispatch(gen int, action Action) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	before := r.state
	r.state = Reduce(r.state, action)
	changed := !statesEqual(before, r.state)
	snapshot := snapshotOf(r.state)
	if action.Type == ActionSetError || (action.Type == ActionFinish && r.state.Result != nil) {
		r.closeConnectionLocked()
	}
	r.mu.Unlock()

	if changed {
		r.publish(snapshot)
	}
}

// publish replaces any pending snapshot so slow consumers always read
// the freshest state.
func (r *Retriever) publish(snapshot Snapshot) {
	for {
		select {
		case r.updates <- snapshot:
			return
		default:
			select {
			case <-r.updates:
			default:
			}
		}
	}
}

func (r *Retriever) closeConnectionLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func snapshotOf(state State) Snapshot {
	snapshot := Snapshot{
		Query:           state.Query,
		Status:          state.Status,
		CurrentStepType: state.CurrentStepType,
		Steps:           state.Steps,
		Result:          state.Result,
		Err:             state.Err,
	}
	if state.Buffer != "" {
		if arguments, ok := partialjson.ParseObject(state.Buffer); ok {
			snapshot.CurrentResponse = &CurrentResponse{
				Tool:      state.CurrentTool,
				Arguments: arguments,
			}
		}
	}
	return snapshot
}

// statesEqual compares the run-visible portions of two states. Steps are
// compared by length because the list is append-only.
func statesEqual(a, b State) bool {
	return a.Query == b.Query &&
		a.Status == b.Status &&
		a.CurrentStepType == b.CurrentStepType &&
		len(a.Steps) == len(b.Steps) &&
		a.Result == b.Result &&
		a.Err == b.Err &&
		a.Buffer == b.Buffer &&
		a.CurrentTool == b.CurrentTool
}
