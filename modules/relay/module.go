// Package relay owns the WebSocket hub: the socket registry, per-room
// groups, and frame fan-out. It also bridges event-bus traffic back onto the
// wire (execution results produced by the HTTP runner).
package relay

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/example/collab-editor-demo/events"
	"github.com/example/collab-editor-demo/protocol"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module wraps the hub for the framework lifecycle and consumes
// ExecutionFinished events.
type Module struct {
	hub *Hub
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new relay module.
func NewModule() *Module {
	return &Module{hub: NewHub()}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[relay] Module started - WebSocket hub ready")
	return nil
}

// Stop disconnects all clients.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	m.hub.closeAll()
	log.Printf("[relay] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers subscribes to runner events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ExecutionFinishedV1, m.handleExecutionFinished, m,
	); err != nil {
		return fmt.Errorf("failed to register ExecutionFinished consumer: %w", err)
	}

	log.Println("[relay] Registered event consumers: ExecutionFinished")
	return nil
}

// handleExecutionFinished pushes a compile-and-run result to every member of
// the room that requested it. Server-originated, so nobody is excluded.
func (m *Module) handleExecutionFinished(_ context.Context, event events.ExecutionFinishedEvent, _ *mono.Msg) error {
	frame, err := protocol.Marshal(protocol.ActionExecutionResult, protocol.ExecutionResultBroadcast{
		Output:   event.Output,
		Language: event.Language,
	})
	if err != nil {
		slog.Error("Failed to marshal execution-result frame", "error", err)
		return nil
	}

	m.hub.BroadcastToRoom(event.RoomID, frame, "")
	return nil
}

// GetHub returns the hub for the gateway module to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}
