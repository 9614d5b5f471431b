// Package stats consumes session and runner events to keep process-lifetime
// counters, surfaced at /api/v1/stats.
package stats

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/example/collab-editor-demo/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Counters is a point-in-time snapshot of the collected totals.
type Counters struct {
	Joins        int64 `json:"joins"`
	Leaves       int64 `json:"leaves"`
	Messages     int64 `json:"messages"`
	RoomsCreated int64 `json:"rooms_created"`
	Executions   int64 `json:"executions"`
}

// Module counts session and runner events.
type Module struct {
	joins        atomic.Int64
	leaves       atomic.Int64
	messages     atomic.Int64
	roomsCreated atomic.Int64
	executions   atomic.Int64
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates a new stats module.
func NewModule() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "stats"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[stats] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[stats] Module stopped")
	return nil
}

// RegisterEventConsumers subscribes to every counted event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberJoinedV1, m.handleMemberJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberLeftV1, m.handleMemberLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ExecutionFinishedV1, m.handleExecutionFinished, m,
	); err != nil {
		return fmt.Errorf("failed to register ExecutionFinished consumer: %w", err)
	}

	log.Println("[stats] Registered event consumers: MemberJoined, MemberLeft, MessageSent, RoomCreated, ExecutionFinished")
	return nil
}

func (m *Module) handleMemberJoined(_ context.Context, _ events.MemberJoinedEvent, _ *mono.Msg) error {
	m.joins.Add(1)
	return nil
}

func (m *Module) handleMemberLeft(_ context.Context, _ events.MemberLeftEvent, _ *mono.Msg) error {
	m.leaves.Add(1)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, _ events.MessageSentEvent, _ *mono.Msg) error {
	m.messages.Add(1)
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, _ events.RoomCreatedEvent, _ *mono.Msg) error {
	m.roomsCreated.Add(1)
	return nil
}

func (m *Module) handleExecutionFinished(_ context.Context, _ events.ExecutionFinishedEvent, _ *mono.Msg) error {
	m.executions.Add(1)
	return nil
}

// Snapshot returns the current totals.
func (m *Module) Snapshot() Counters {
	return Counters{
		Joins:        m.joins.Load(),
		Leaves:       m.leaves.Load(),
		Messages:     m.messages.Load(),
		RoomsCreated: m.roomsCreated.Load(),
		Executions:   m.executions.Load(),
	}
}
