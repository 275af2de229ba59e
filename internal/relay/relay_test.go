// ABOUTME: Shared test doubles for the relay package.
// ABOUTME: Provides a recording sender and a controllable persistence sink.

package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/wallboard-relay/internal/identity"
	"github.com/2389/wallboard-relay/internal/protocol"
	"github.com/2389/wallboard-relay/internal/registry"
	"github.com/2389/wallboard-relay/internal/store"
)

// recordingSender captures delivered events and can be made to fail.
type recordingSender struct {
	mu     sync.Mutex
	events []protocol.Event
	fail   bool
}

func (s *recordingSender) Send(ev protocol.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("send failed")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSender) received() []protocol.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakeSink assigns IDs and timestamps in memory, optionally failing.
type fakeSink struct {
	mu       sync.Mutex
	statuses []*store.StatusEvent
	messages []*store.Message
	failWith error
}

func (f *fakeSink) AppendStatus(_ context.Context, ev *store.StatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	ev.ID = uuid.New().String()
	ev.Timestamp = time.Now().UTC()
	f.statuses = append(f.statuses, ev)
	return nil
}

func (f *fakeSink) AppendMessage(_ context.Context, msg *store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	msg.ID = uuid.New().String()
	msg.Timestamp = time.Now().UTC()
	f.messages = append(f.messages, msg)
	return nil
}

// connect registers a fresh connection and returns its recording sender.
func connect(reg *registry.Registry, code string, role identity.Role, teamID *int) *recordingSender {
	sender := &recordingSender{}
	conn := registry.NewConnection(identity.Identity{Code: code, Role: role, TeamID: teamID}, sender)
	if err := reg.Register(conn); err != nil {
		panic(err)
	}
	return sender
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func team(id int) *int {
	return &id
}
