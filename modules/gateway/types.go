package gateway

import (
	"encoding/json"

	"github.com/example/collab-editor-demo/modules/stats"
	"github.com/example/collab-editor-demo/protocol"
)

// ErrorResponse is the uniform error body for REST endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UpstreamErrorResponse carries the upstream source's own error list back to
// the caller alongside the uniform fields.
type UpstreamErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Clients int    `json:"clients"`
}

// RoomInfo describes one live room in the room listing.
type RoomInfo struct {
	RoomID  string `json:"roomId"`
	Members int    `json:"members"`
}

// RoomListResponse is the GET /api/v1/rooms body.
type RoomListResponse struct {
	Rooms []RoomInfo `json:"rooms"`
	Count int        `json:"count"`
}

// CreateRoomResponse is the POST /api/v1/rooms body.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// HistoryResponse is the GET /api/v1/rooms/:id/history body.
type HistoryResponse struct {
	RoomID   string                 `json:"roomId"`
	Messages []protocol.ChatMessage `json:"messages"`
	Count    int                    `json:"count"`
}

// StatsResponse is the GET /api/v1/stats body.
type StatsResponse struct {
	stats.Counters
	LiveRooms   int `json:"live_rooms"`
	LiveClients int `json:"live_clients"`
}

// ExecuteRequest is the POST /api/execute body.
type ExecuteRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
	RoomID   string `json:"roomId"`
}

// ProblemRequest is the POST /api/problem body.
type ProblemRequest struct {
	Slug string `json:"slug"`
}
