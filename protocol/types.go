// Package protocol defines the JSON wire format spoken over the /ws endpoint.
//
// Every frame is an envelope {type, payload}. Payload field names are
// camelCase because the browser client consumes them directly.
package protocol

import "encoding/json"

// Frame is the envelope for every WebSocket message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Marshal builds a wire-ready frame for the given action and payload.
func Marshal(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: action, Payload: raw})
}

// MarshalError builds an error frame delivered to a single sender.
func MarshalError(msg string) ([]byte, error) {
	return json.Marshal(Frame{Type: ActionError, Error: msg})
}

// ClientInfo identifies one live connection inside a room.
type ClientInfo struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// ChatMessage is one entry of a room's transcript. Timestamp is a formatted
// wall-clock string, matching what the client renders verbatim.
type ChatMessage struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// File is one document in a room's file tree. ParentID is null for roots.
type File struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"` // "file" or "folder"
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
}

// Inbound payloads (client -> server).

type JoinPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type CodeChangePayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type SyncCodePayload struct {
	SocketID string `json:"socketId"`
	Code     string `json:"code"`
}

type SendMessagePayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type ExecutionResultPayload struct {
	RoomID   string `json:"roomId"`
	Output   string `json:"output"`
	Language string `json:"language"`
}

type SignalPayload struct {
	Signal json.RawMessage `json:"signal"`
	To     string          `json:"to"`
	From   string          `json:"from"`
}

type DrawingPayload struct {
	RoomID  string          `json:"roomId"`
	Changes json.RawMessage `json:"changes"`
}

type QuestionPayload struct {
	RoomID   string `json:"roomId"`
	Question string `json:"question"`
}

type InputPayload struct {
	RoomID string `json:"roomId"`
	Input  string `json:"input"`
}

type FileCreatedPayload struct {
	RoomID string `json:"roomId"`
	File   File   `json:"file"`
}

type FileUpdatedPayload struct {
	RoomID  string `json:"roomId"`
	FileID  string `json:"fileId"`
	Content string `json:"content"`
}

type FileRenamedPayload struct {
	RoomID  string `json:"roomId"`
	FileID  string `json:"fileId"`
	NewName string `json:"newName"`
}

type FileDeletedPayload struct {
	RoomID string `json:"roomId"`
	FileID string `json:"fileId"`
}

// Outbound payloads (server -> client).

type JoinedBroadcast struct {
	Clients  []ClientInfo `json:"clients"`
	Username string       `json:"username"`
	SocketID string       `json:"socketId"`
}

type DisconnectedBroadcast struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

type CodeBroadcast struct {
	Code string `json:"code"`
}

type ReceiveMessageBroadcast struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type SyncChatBroadcast struct {
	Messages []ChatMessage `json:"messages"`
}

type TypingBroadcast struct {
	Username string `json:"username"`
}

type ExecutionResultBroadcast struct {
	Output   string `json:"output"`
	Language string `json:"language"`
}

type SignalBroadcast struct {
	Signal json.RawMessage `json:"signal"`
	From   string          `json:"from"`
}

type DrawingBroadcast struct {
	Changes json.RawMessage `json:"changes"`
}

type QuestionBroadcast struct {
	Question string `json:"question"`
}

type InputBroadcast struct {
	Input string `json:"input"`
}

type SyncFilesBroadcast struct {
	Files []File `json:"files"`
}

type FileCreatedBroadcast struct {
	File File `json:"file"`
}

type FileUpdatedBroadcast struct {
	FileID  string `json:"fileId"`
	Content string `json:"content"`
}

type FileRenamedBroadcast struct {
	FileID  string `json:"fileId"`
	NewName string `json:"newName"`
}

type FileDeletedBroadcast struct {
	FileID string `json:"fileId"`
}
