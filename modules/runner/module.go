// Package runner executes submitted C++ snippets: write to a temp file,
// compile with g++, run with a fixed wall-clock timeout, and report a
// structured result. It never throws program failures back at the transport.
package runner

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/example/collab-editor-demo/events"
	"github.com/go-monolith/mono"
)

const defaultTimeout = 5 * time.Second

// Module is the compile-and-run capability.
type Module struct {
	eventBus mono.EventBus
	timeout  time.Duration
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates the runner module. The execution timeout comes from
// EXEC_TIMEOUT (default 5s).
func NewModule() *Module {
	timeout := defaultTimeout
	if v := os.Getenv("EXEC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		} else {
			log.Printf("[runner] Invalid EXEC_TIMEOUT %q, using default", v)
		}
	}
	return &Module{timeout: timeout}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "runner"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ExecutionFinishedV1.ToBase(),
	}
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Printf("[runner] Module started - execution timeout %s", m.timeout)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[runner] Module stopped")
	return nil
}

// Run executes a job and, when the request names a room, publishes the
// result so the relay can push it to that room's members.
func (m *Module) Run(ctx context.Context, req Request) (Result, error) {
	result, err := m.Execute(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if req.RoomID != "" {
		output := result.Stdout
		if result.ExitCode != 0 {
			output = result.Stderr
		}
		event := events.ExecutionFinishedEvent{
			RoomID:    req.RoomID,
			Output:    output,
			Language:  req.Language,
			ExitCode:  result.ExitCode,
			Timestamp: time.Now(),
		}
		if err := events.ExecutionFinishedV1.Publish(m.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish ExecutionFinished event", "error", err)
		}
	}

	return result, nil
}
