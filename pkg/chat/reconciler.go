package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/resume-chat/pkg/transport"
)

// Transport is what the reconciler needs from a connection.
// *transport.Session satisfies it.
type Transport interface {
	IsOpen() bool
	Send(text string) error
	Attach(handler transport.FrameHandler) (transport.Listener, error)
}

var _ Transport = (*transport.Session)(nil)

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the reconciler state.
type Snapshot struct {
	Messages []Message
	State    State
	Draft    string
}

func (s Snapshot) IsLoading() bool {
	return s.State == StateAwaitingResponse
}

type Option func(*Reconciler)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithIDGenerator replaces the UUID correlation id generator.
func WithIDGenerator(f func() string) Option {
	return func(r *Reconciler) { r.newID = f }
}

// WithOnChange registers f to be called after every change to the transcript
// or state. f runs outside the reconciler lock and may be called from the
// transport read goroutine, so it must not block.
func WithOnChange(f func(Snapshot)) Option {
	return func(r *Reconciler) { r.onChange = f }
}

// Reconciler folds the inbound frames of one outstanding request into the
// transcript. It moves from StateIdle to StateAwaitingResponse on Submit and
// back to StateIdle when the sentinel arrives. Only the transcript and the
// draft survive from one request to the next.
type Reconciler struct {
	transport Transport
	newID     func() string
	logger    zerolog.Logger
	onChange  func(Snapshot)

	mu         sync.Mutex
	state      State
	transcript Transcript
	draft      string
	listener   transport.Listener
	// cycle identifies the current request; handlers of earlier requests
	// compare against it and drop their frames.
	cycle         uint64
	correlationID string
	// fragmentIdx is the transcript index of the assistant entry raw
	// fragments are merged into, or -1 when no fragment run is open.
	fragmentIdx int
	idle        chan struct{}
}

func NewReconciler(t Transport, opts ...Option) *Reconciler {
	r := &Reconciler{
		transport:   t,
		newID:       uuid.NewString,
		logger:      log.With().Str("component", "reconciler").Logger(),
		fragmentIdx: -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) SetDraft(text string) {
	r.mu.Lock()
	r.draft = text
	r.mu.Unlock()
}

func (r *Reconciler) Draft() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) IsLoading() bool {
	return r.State() == StateAwaitingResponse
}

func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Submit starts a request with text, or with the draft when text is empty.
// It is a no-op returning false when the transport is not open or a request
// is already outstanding.
func (r *Reconciler) Submit(text string) bool {
	r.mu.Lock()
	if !r.transport.IsOpen() {
		r.mu.Unlock()
		r.logger.Debug().Msg("submit ignored, connection not open")
		return false
	}
	if r.state != StateIdle {
		r.mu.Unlock()
		r.logger.Debug().Msg("submit ignored, request in flight")
		return false
	}

	if text == "" {
		text = r.draft
	}
	id := r.newID()
	r.state = StateAwaitingResponse
	r.cycle++
	cycle := r.cycle
	r.correlationID = id
	r.fragmentIdx = -1
	r.idle = make(chan struct{})
	r.transcript.Append(Message{ID: id, Role: RoleUser, Content: text})

	r.detachLocked()
	// attach before writing so that no reply can arrive unobserved
	l, err := r.transport.Attach(func(payload string) {
		r.handleFrame(cycle, payload)
	})
	r.draft = ""
	if err != nil {
		r.logger.Error().Err(err).Str("correlation_id", id).Msg("failed to attach frame listener")
		r.endCycleLocked()
		snap := r.snapshotLocked()
		r.mu.Unlock()
		r.notify(snap)
		return true
	}
	r.listener = l

	if err := r.transport.Send(text); err != nil {
		r.logger.Warn().Err(err).Str("correlation_id", id).Msg("failed to send message")
	}
	r.logger.Debug().Str("correlation_id", id).Int("length", len(text)).Msg("request submitted")

	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(snap)
	return true
}

// WaitIdle blocks until no request is outstanding or ctx is done.
func (r *Reconciler) WaitIdle(ctx context.Context) error {
	r.mu.Lock()
	state, ch := r.state, r.idle
	r.mu.Unlock()
	if state == StateIdle {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the listener and abandons any outstanding request.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.detachLocked()
	changed := r.state == StateAwaitingResponse
	if changed {
		r.endCycleLocked()
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()
	if changed {
		r.notify(snap)
	}
}

func (r *Reconciler) handleFrame(cycle uint64, payload string) {
	r.mu.Lock()
	if cycle != r.cycle || r.state != StateAwaitingResponse {
		r.mu.Unlock()
		r.logger.Debug().Uint64("cycle", cycle).Msg("dropping frame for finished request")
		return
	}

	frame := DecodeFrame(payload)
	id := r.correlationID
	switch frame.Kind {
	case FrameSentinel:
		r.detachLocked()
		r.endCycleLocked()
		r.logger.Debug().Str("correlation_id", id).Msg("reply complete")

	case FrameResponse, FrameError:
		r.fragmentIdx = -1
		r.transcript.Append(Message{ID: id, Role: RoleAssistant, Content: frame.Text})

	case FrameFragment:
		if last, ok := r.transcript.Last(); ok &&
			r.fragmentIdx == r.transcript.Len()-1 &&
			last.Role == RoleAssistant {
			r.transcript.AppendContent(r.fragmentIdx, frame.Text)
		} else {
			r.fragmentIdx = r.transcript.Append(Message{ID: id, Role: RoleAssistant, Content: frame.Text})
		}

	case FrameUnknown:
		r.mu.Unlock()
		r.logger.Warn().Str("type", frame.Type).Str("correlation_id", id).Msg("ignoring frame with unknown type")
		return
	}

	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(snap)
}

func (r *Reconciler) detachLocked() {
	if r.listener != nil {
		r.listener.Detach()
		r.listener = nil
	}
}

func (r *Reconciler) endCycleLocked() {
	r.state = StateIdle
	r.fragmentIdx = -1
	if r.idle != nil {
		close(r.idle)
		r.idle = nil
	}
}

func (r *Reconciler) snapshotLocked() Snapshot {
	return Snapshot{
		Messages: r.transcript.Messages(),
		State:    r.state,
		Draft:    r.draft,
	}
}

func (r *Reconciler) notify(s Snapshot) {
	if r.onChange != nil {
		r.onChange(s)
	}
}
