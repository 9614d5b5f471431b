// Package session implements the room session registry: who is connected
// under which name, each room's chat transcript, and each room's file tree.
package session

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/example/collab-editor-demo/events"
	"github.com/example/collab-editor-demo/protocol"
	"github.com/go-monolith/mono"
)

const (
	defaultRoomTTL = 10 * time.Minute
	sweepInterval  = time.Minute
)

// Module wraps the session store with event emission and the empty-room
// eviction janitor.
type Module struct {
	store    *Store
	eventBus mono.EventBus

	// occupied reports live transport-level membership for a room. Injected
	// from the relay hub so the janitor never evicts an occupied room.
	occupied func(roomID string) bool

	ttl          time.Duration
	cancelSweep  context.CancelFunc
	sweepStopped chan struct{}
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the session module. occupied is consulted by the eviction
// janitor; rooms empty longer than ROOM_TTL (default 10m) are dropped.
func NewModule(occupied func(roomID string) bool) *Module {
	ttl := defaultRoomTTL
	if v := os.Getenv("ROOM_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl = d
		} else {
			log.Printf("[session] Invalid ROOM_TTL %q, using default: %v", v, err)
		}
	}
	return &Module{
		store:    NewStore(),
		occupied: occupied,
		ttl:      ttl,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "session"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.RoomCreatedV1.ToBase(),
	}
}

// Start launches the eviction janitor.
func (m *Module) Start(_ context.Context) error {
	if m.ttl <= 0 {
		log.Println("[session] Module started - room eviction disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelSweep = cancel
	m.sweepStopped = make(chan struct{})
	go m.runJanitor(ctx)

	log.Printf("[session] Module started - empty rooms evicted after %s", m.ttl)
	return nil
}

// Stop shuts down the janitor.
func (m *Module) Stop(_ context.Context) error {
	if m.cancelSweep != nil {
		m.cancelSweep()
		<-m.sweepStopped
	}
	log.Println("[session] Module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms": m.store.RoomCount(),
		},
	}
}

func (m *Module) runJanitor(ctx context.Context) {
	defer close(m.sweepStopped)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, roomID := range m.store.Sweep(m.ttl, m.occupied) {
				log.Printf("[session] Evicted idle room %s", roomID)
			}
		}
	}
}

// Join records a display name for a connection. The caller adds the
// connection to the transport group; the registry only owns the mapping.
func (m *Module) Join(socketID, roomID, username string) error {
	if roomID == "" {
		return ErrRoomIDEmpty
	}
	if err := ValidateUsername(username); err != nil {
		return err
	}

	m.store.SetUsername(socketID, username)

	if m.eventBus != nil {
		event := events.MemberJoinedEvent{
			RoomID:    roomID,
			SocketID:  socketID,
			Username:  username,
			Timestamp: time.Now(),
		}
		if err := events.MemberJoinedV1.Publish(m.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish MemberJoined event", "error", err)
		}
	}

	slog.Info("Member joined room", "socketID", socketID, "roomID", roomID, "username", username)
	return nil
}

// Snapshot returns the transcript and file tree for a joining connection,
// seeding the default document if the room's file set is empty.
func (m *Module) Snapshot(roomID string) ([]protocol.ChatMessage, []protocol.File) {
	msgs, files, created := m.store.Snapshot(roomID)
	if created && m.eventBus != nil {
		event := events.RoomCreatedEvent{RoomID: roomID, Timestamp: time.Now()}
		if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish RoomCreated event", "error", err)
		}
	}
	return msgs, files
}

// Username resolves a connection id to its display name.
func (m *Module) Username(socketID string) (string, bool) {
	return m.store.Username(socketID)
}

// Disconnect erases a connection's username mapping after its peers have been
// notified, and publishes one MemberLeft event per room it belonged to.
func (m *Module) Disconnect(socketID string, roomIDs []string) {
	username, ok := m.store.RemoveUsername(socketID)
	if !ok {
		return
	}

	if m.eventBus != nil {
		for _, roomID := range roomIDs {
			event := events.MemberLeftEvent{
				RoomID:    roomID,
				SocketID:  socketID,
				Username:  username,
				Timestamp: time.Now(),
			}
			if err := events.MemberLeftV1.Publish(m.eventBus, event, nil); err != nil {
				slog.Warn("Failed to publish MemberLeft event", "error", err)
			}
		}
	}

	slog.Info("Member disconnected", "socketID", socketID, "username", username, "rooms", len(roomIDs))
}

// AppendMessage validates and stores a chat message, returning the stamped
// transcript entry.
func (m *Module) AppendMessage(roomID, username, message string) (protocol.ChatMessage, error) {
	if roomID == "" {
		return protocol.ChatMessage{}, ErrRoomIDEmpty
	}
	if err := ValidateUsername(username); err != nil {
		return protocol.ChatMessage{}, err
	}
	if err := ValidateMessage(message); err != nil {
		return protocol.ChatMessage{}, err
	}

	msg := m.store.AppendMessage(roomID, username, message)

	if m.eventBus != nil {
		event := events.MessageSentEvent{
			RoomID:    roomID,
			Username:  username,
			Message:   message,
			Timestamp: time.Now(),
		}
		if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish MessageSent event", "error", err)
		}
	}

	return msg, nil
}

// Messages returns a room's transcript.
func (m *Module) Messages(roomID string) []protocol.ChatMessage {
	return m.store.Messages(roomID)
}

// CreateFile appends a document to a room's file tree.
func (m *Module) CreateFile(roomID string, f protocol.File) {
	m.store.CreateFile(roomID, f)
}

// UpdateFile overwrites a document's content; false means unknown id.
func (m *Module) UpdateFile(roomID, fileID, content string) bool {
	return m.store.UpdateFile(roomID, fileID, content)
}

// RenameFile overwrites a document's name; false means unknown id.
func (m *Module) RenameFile(roomID, fileID, newName string) bool {
	return m.store.RenameFile(roomID, fileID, newName)
}

// DeleteFile removes a document; false means unknown id.
func (m *Module) DeleteFile(roomID, fileID string) bool {
	return m.store.DeleteFile(roomID, fileID)
}

// Files returns a room's file tree.
func (m *Module) Files(roomID string) []protocol.File {
	return m.store.Files(roomID)
}

// HasRoom reports whether any state exists for a room.
func (m *Module) HasRoom(roomID string) bool {
	return m.store.HasRoom(roomID)
}

// RoomIDs returns the ids of every room with live state.
func (m *Module) RoomIDs() []string {
	return m.store.RoomIDs()
}

// RoomCount returns the number of rooms with live state.
func (m *Module) RoomCount() int {
	return m.store.RoomCount()
}
