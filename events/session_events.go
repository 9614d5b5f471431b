// Package events declares the typed event definitions exchanged over the
// internal event bus.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MemberJoinedEvent is emitted when a connection joins a room.
type MemberJoinedEvent struct {
	RoomID    string    `json:"room_id"`
	SocketID  string    `json:"socket_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberLeftEvent is emitted when a connection disconnects from a room.
type MemberLeftEvent struct {
	RoomID    string    `json:"room_id"`
	SocketID  string    `json:"socket_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted when a chat message is stored in a transcript.
type MessageSentEvent struct {
	RoomID    string    `json:"room_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomCreatedEvent is emitted when a room's state is materialized for the
// first time (first join seeds the default file).
type RoomCreatedEvent struct {
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionFinishedEvent is emitted when a compile-and-run request that named
// a room has completed. The relay module fans the output out to that room.
type ExecutionFinishedEvent struct {
	RoomID    string    `json:"room_id"`
	Output    string    `json:"output"`
	Language  string    `json:"language"`
	ExitCode  int       `json:"exit_code"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the session and runner modules.
var (
	MemberJoinedV1 = helper.EventDefinition[MemberJoinedEvent](
		"session",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberLeftEvent](
		"session",
		"MemberLeft",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"session",
		"MessageSent",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"session",
		"RoomCreated",
		"v1",
	)

	ExecutionFinishedV1 = helper.EventDefinition[ExecutionFinishedEvent](
		"runner",
		"ExecutionFinished",
		"v1",
	)
)
