// Package subscription is the cluster's subscription supervisor (C16): a
// source-stream-to-client-stream pump with explicit cancellation. It pumps
// frames from an agent's gRPC stream into a subscription's bounded channel,
// one pump goroutine per live subscription, driven by the stream's own Recv
// loop rather than a polling ticker.
package subscription

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// bufferSlots caps the subscription's frame channel, keeping buffering small
// enough that backpressure reaches the producer promptly.
const bufferSlots = 256

// Frame is one emitted item, opaque to the supervisor. Resolvers decide what
// it actually is (a log entry, a stats sample, an event).
type Frame struct {
	Payload interface{}
	Err     error
}

// Subscription is a live pump: source (an agent stream) to Frames, the
// client-facing channel a GraphQL subscription resolver drains. It holds a
// handle (ID + channel) rather than a reference back to the Supervisor: the
// Supervisor owns the subscription's lifecycle, not the other way around.
type Subscription struct {
	ID      string
	AgentID string

	frames chan Frame
	cancel context.CancelFunc

	messages atomic.Int64
	bytes    atomic.Int64

	done chan struct{}
}

// Frames returns the channel clients drain. It is closed once the pump
// goroutine exits, whether from source exhaustion, an error, or cancellation.
func (s *Subscription) Frames() <-chan Frame { return s.frames }

// Cancel tears down the source stream. Safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

// Counts returns the per-frame message and byte counters, read atomically
// so a concurrent reader never blocks the pump.
func (s *Subscription) Counts() (messages, bytes int64) {
	return s.messages.Load(), s.bytes.Load()
}

// Supervisor tracks every live subscription and the global and per-agent
// active-subscription counters.
type Supervisor struct {
	mu    sync.Mutex
	subs  map[string]*Subscription
	total atomic.Int64
	byAgent map[string]*atomic.Int64
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		subs:    make(map[string]*Subscription),
		byAgent: make(map[string]*atomic.Int64),
	}
}

// Source is a one-shot receiver over an agent's gRPC stream: each call to
// Recv blocks until the next frame, and returns an error (including
// io.EOF-equivalent stream-closed errors) when the source is exhausted.
type Source func() (payload interface{}, size int, err error)

// Subscribe starts a pump goroutine: it calls src in a loop, pushing each
// frame onto subscription.frames, blocking (not dropping) when the bounded
// channel is full so backpressure reaches the producer. The pump exits, and
// the channel and source are torn down, on source error/EOF or ctx
// cancellation, whichever comes first.
func (sv *Supervisor) Subscribe(ctx context.Context, agentID string, src Source) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ID:      uuid.NewString(),
		AgentID: agentID,
		frames:  make(chan Frame, bufferSlots),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	sv.mu.Lock()
	sv.subs[sub.ID] = sub
	sv.mu.Unlock()
	sv.total.Add(1)
	sv.agentCounter(agentID).Add(1)

	go sv.pump(ctx, sub, src)

	return sub
}

func (sv *Supervisor) pump(ctx context.Context, sub *Subscription, src Source) {
	defer sv.teardown(sub)
	defer close(sub.frames)

	for {
		payload, size, err := src()
		if err != nil {
			select {
			case sub.frames <- Frame{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		sub.messages.Add(1)
		sub.bytes.Add(int64(size))

		select {
		case sub.frames <- Frame{Payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}

func (sv *Supervisor) teardown(sub *Subscription) {
	sub.cancel()
	close(sub.done)

	sv.mu.Lock()
	delete(sv.subs, sub.ID)
	sv.mu.Unlock()

	sv.total.Add(-1)
	sv.agentCounter(sub.AgentID).Add(-1)
}

func (sv *Supervisor) agentCounter(agentID string) *atomic.Int64 {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	c, ok := sv.byAgent[agentID]
	if !ok {
		c = &atomic.Int64{}
		sv.byAgent[agentID] = c
	}
	return c
}

// Active returns the global active-subscription count.
func (sv *Supervisor) Active() int64 { return sv.total.Load() }

// ActiveForAgent returns the active-subscription count scoped to one agent.
func (sv *Supervisor) ActiveForAgent(agentID string) int64 {
	return sv.agentCounter(agentID).Load()
}

// Get looks up a live subscription by id, for a cancellation request coming
// in on a different request than the one that created it (e.g. a
// graphql-ws "stop" message).
func (sv *Supervisor) Get(id string) (*Subscription, bool) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	s, ok := sv.subs[id]
	return s, ok
}
