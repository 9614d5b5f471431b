package gateway

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/collab-editor-demo/modules/relay"
	"github.com/example/collab-editor-demo/protocol"
)

// handleWebSocket owns one connection: register with the hub, read frames to
// completion one at a time, tear down on close. Each frame's handler runs to
// completion before the next frame from this connection is read, so registry
// mutations are never interleaved per sender.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	socketID := uuid.New().String()
	client := relay.NewClient(socketID, c)
	m.hub.Register(client)
	go client.WritePump()

	slog.Info("WebSocket connected", "socketID", socketID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "socketID", socketID, "error", err)
			}
			break
		}

		var frame protocol.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			m.sendError(socketID, "Invalid message format")
			continue
		}

		m.dispatch(socketID, frame)
	}

	m.handleDisconnect(socketID)
	slog.Info("WebSocket disconnected", "socketID", socketID)
}

// dispatch routes one inbound frame to its action handler. Frames with
// missing required fields are dropped with a log and never answered; only an
// unknown action or undecodable payload earns an error frame.
func (m *Module) dispatch(socketID string, frame protocol.Frame) {
	switch frame.Type {
	case protocol.ActionJoin:
		m.handleJoin(socketID, frame.Payload)
	case protocol.ActionCodeChange:
		m.handleCodeChange(socketID, frame.Payload)
	case protocol.ActionSyncCode:
		m.handleSyncCode(socketID, frame.Payload)
	case protocol.ActionSendMessage:
		m.handleSendMessage(socketID, frame.Payload)
	case protocol.ActionTypingStart, protocol.ActionTypingStop:
		m.handleTyping(socketID, frame.Type, frame.Payload)
	case protocol.ActionExecutionResult:
		m.handleExecutionResult(socketID, frame.Payload)
	case protocol.ActionSignal:
		m.handleSignal(socketID, frame.Payload)
	case protocol.ActionDrawingUpdate:
		m.handleDrawingUpdate(socketID, frame.Payload)
	case protocol.ActionQuestionChange:
		m.handleQuestionChange(socketID, frame.Payload)
	case protocol.ActionSyncInput:
		m.handleSyncInput(socketID, frame.Payload)
	case protocol.ActionFileCreated:
		m.handleFileCreated(socketID, frame.Payload)
	case protocol.ActionFileUpdated:
		m.handleFileUpdated(socketID, frame.Payload)
	case protocol.ActionFileRenamed:
		m.handleFileRenamed(socketID, frame.Payload)
	case protocol.ActionFileDeleted:
		m.handleFileDeleted(socketID, frame.Payload)
	default:
		m.sendError(socketID, "Unknown message type: "+frame.Type)
	}
}

// handleDisconnect notifies every room the socket belonged to before the
// username mapping is erased; the payload needs the name.
func (m *Module) handleDisconnect(socketID string) {
	roomIDs := m.hub.Rooms(socketID)
	username, _ := m.session.Username(socketID)

	if frame, err := protocol.Marshal(protocol.ActionDisconnected, protocol.DisconnectedBroadcast{
		SocketID: socketID,
		Username: username,
	}); err == nil {
		for _, roomID := range roomIDs {
			m.hub.BroadcastToRoom(roomID, frame, socketID)
		}
	}

	m.session.Disconnect(socketID, roomIDs)
	m.hub.Unregister(socketID)
}

// handleJoin adds the socket to the room, announces the fresh membership
// list to every member (the joiner included), then sends the chat and file
// snapshots to the joiner alone.
func (m *Module) handleJoin(socketID string, payload json.RawMessage) {
	var p protocol.JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid join payload")
		return
	}

	if err := m.session.Join(socketID, p.RoomID, p.Username); err != nil {
		slog.Warn("Dropping join request", "socketID", socketID, "error", err)
		return
	}
	m.hub.JoinRoom(socketID, p.RoomID)

	clients := m.roomClients(p.RoomID)
	if frame, err := protocol.Marshal(protocol.ActionJoined, protocol.JoinedBroadcast{
		Clients:  clients,
		Username: p.Username,
		SocketID: socketID,
	}); err == nil {
		for _, member := range clients {
			m.hub.SendTo(member.SocketID, frame)
		}
	}

	messages, files := m.session.Snapshot(p.RoomID)
	m.sendTo(socketID, protocol.ActionSyncChat, protocol.SyncChatBroadcast{Messages: messages})
	m.sendTo(socketID, protocol.ActionSyncFiles, protocol.SyncFilesBroadcast{Files: files})
}

// roomClients resolves the room's current membership to (socketId, username)
// pairs.
func (m *Module) roomClients(roomID string) []protocol.ClientInfo {
	socketIDs := m.hub.RoomClients(roomID)
	clients := make([]protocol.ClientInfo, 0, len(socketIDs))
	for _, id := range socketIDs {
		username, _ := m.session.Username(id)
		clients = append(clients, protocol.ClientInfo{SocketID: id, Username: username})
	}
	return clients
}

// handleCodeChange relays the full buffer to the rest of the room.
// Last-writer-wins by design: no merge, no diffing, the later snapshot
// overwrites the receiver's view.
func (m *Module) handleCodeChange(socketID string, payload json.RawMessage) {
	var p protocol.CodeChangePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid code-change payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping code-change request: missing roomId", "socketID", socketID)
		return
	}

	m.broadcastExcept(p.RoomID, socketID, protocol.ActionCodeChange, protocol.CodeBroadcast{Code: p.Code})
}

// handleSyncCode forwards the current buffer from an existing member to one
// specific socket, so a fresh joiner catches up without the server retaining
// the buffer.
func (m *Module) handleSyncCode(socketID string, payload json.RawMessage) {
	var p protocol.SyncCodePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid sync-code payload")
		return
	}
	if p.SocketID == "" {
		slog.Warn("Dropping sync-code request: missing socketId", "socketID", socketID)
		return
	}

	m.sendTo(p.SocketID, protocol.ActionCodeChange, protocol.CodeBroadcast{Code: p.Code})
}

// handleSendMessage stores the message and relays it to everyone else in the
// room. The sender's UI appends its own copy optimistically; no echo.
func (m *Module) handleSendMessage(socketID string, payload json.RawMessage) {
	var p protocol.SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid send-message payload")
		return
	}

	if _, err := m.session.AppendMessage(p.RoomID, p.Username, p.Message); err != nil {
		slog.Warn("Dropping send-message request", "socketID", socketID, "error", err)
		return
	}

	m.broadcastExcept(p.RoomID, socketID, protocol.ActionReceiveMessage, protocol.ReceiveMessageBroadcast{
		Username: p.Username,
		Message:  p.Message,
	})
}

// handleTyping relays typing indicators; the inactivity timeout lives in the
// sending client, never here.
func (m *Module) handleTyping(socketID, action string, payload json.RawMessage) {
	var p protocol.TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid typing payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping typing request: missing roomId", "socketID", socketID)
		return
	}

	m.broadcastExcept(p.RoomID, socketID, action, protocol.TypingBroadcast{Username: p.Username})
}

func (m *Module) handleExecutionResult(socketID string, payload json.RawMessage) {
	var p protocol.ExecutionResultPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid execution-result payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping execution-result request: missing roomId", "socketID", socketID)
		return
	}

	m.broadcastExcept(p.RoomID, socketID, protocol.ActionExecutionResult, protocol.ExecutionResultBroadcast{
		Output:   p.Output,
		Language: p.Language,
	})
}

// handleSignal relays peer-connection negotiation to one specific target.
// The payload is opaque to the server.
func (m *Module) handleSignal(socketID string, payload json.RawMessage) {
	var p protocol.SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid signal payload")
		return
	}
	if p.To == "" {
		slog.Warn("Dropping signal request: missing target", "socketID", socketID)
		return
	}

	m.sendTo(p.To, protocol.ActionSignal, protocol.SignalBroadcast{Signal: p.Signal, From: p.From})
}

func (m *Module) handleDrawingUpdate(socketID string, payload json.RawMessage) {
	var p protocol.DrawingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid drawing-update payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping drawing-update request: missing roomId", "socketID", socketID)
		return
	}

	m.broadcastExcept(p.RoomID, socketID, protocol.ActionDrawingUpdate, protocol.DrawingBroadcast{Changes: p.Changes})
}

// handleQuestionChange relays the problem panel to the room. Not persisted:
// a late joiner does not receive the last-set question.
func (m *Module) handleQuestionChange(socketID string, payload json.RawMessage) {
	var p protocol.QuestionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid question-change payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping question-change request: missing roomId", "socketID", socketID)
		return
	}

	m.broadcastExcept(p.RoomID, socketID, protocol.ActionQuestionChange, protocol.QuestionBroadcast{Question: p.Question})
}

func (m *Module) handleSyncInput(socketID string, payload json.RawMessage) {
	var p protocol.InputPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid sync-input payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping sync-input request: missing roomId", "socketID", socketID)
		return
	}

	m.broadcastExcept(p.RoomID, socketID, protocol.ActionSyncInput, protocol.InputBroadcast{Input: p.Input})
}

func (m *Module) handleFileCreated(socketID string, payload json.RawMessage) {
	var p protocol.FileCreatedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid file-created payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping file-created request: missing roomId", "socketID", socketID)
		return
	}

	m.session.CreateFile(p.RoomID, p.File)
	m.broadcastExcept(p.RoomID, socketID, protocol.ActionFileCreated, protocol.FileCreatedBroadcast{File: p.File})
}

func (m *Module) handleFileUpdated(socketID string, payload json.RawMessage) {
	var p protocol.FileUpdatedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid file-updated payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping file-updated request: missing roomId", "socketID", socketID)
		return
	}

	// Unknown file id is a silent no-op: no broadcast, no error.
	if !m.session.UpdateFile(p.RoomID, p.FileID, p.Content) {
		return
	}
	m.broadcastExcept(p.RoomID, socketID, protocol.ActionFileUpdated, protocol.FileUpdatedBroadcast{
		FileID:  p.FileID,
		Content: p.Content,
	})
}

func (m *Module) handleFileRenamed(socketID string, payload json.RawMessage) {
	var p protocol.FileRenamedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid file-renamed payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping file-renamed request: missing roomId", "socketID", socketID)
		return
	}

	if !m.session.RenameFile(p.RoomID, p.FileID, p.NewName) {
		return
	}
	m.broadcastExcept(p.RoomID, socketID, protocol.ActionFileRenamed, protocol.FileRenamedBroadcast{
		FileID:  p.FileID,
		NewName: p.NewName,
	})
}

func (m *Module) handleFileDeleted(socketID string, payload json.RawMessage) {
	var p protocol.FileDeletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.sendError(socketID, "Invalid file-deleted payload")
		return
	}
	if p.RoomID == "" {
		slog.Warn("Dropping file-deleted request: missing roomId", "socketID", socketID)
		return
	}

	if !m.session.DeleteFile(p.RoomID, p.FileID) {
		return
	}
	m.broadcastExcept(p.RoomID, socketID, protocol.ActionFileDeleted, protocol.FileDeletedBroadcast{FileID: p.FileID})
}

// sendTo marshals and queues a frame for one socket.
func (m *Module) sendTo(socketID, action string, payload any) {
	frame, err := protocol.Marshal(action, payload)
	if err != nil {
		slog.Error("Failed to marshal frame", "action", action, "error", err)
		return
	}
	m.hub.SendTo(socketID, frame)
}

// broadcastExcept marshals and queues a frame for every room member but the
// sender.
func (m *Module) broadcastExcept(roomID, exceptID, action string, payload any) {
	frame, err := protocol.Marshal(action, payload)
	if err != nil {
		slog.Error("Failed to marshal frame", "action", action, "error", err)
		return
	}
	m.hub.BroadcastToRoom(roomID, frame, exceptID)
}

// sendError queues an error frame for one socket.
func (m *Module) sendError(socketID, msg string) {
	frame, err := protocol.MarshalError(msg)
	if err != nil {
		return
	}
	m.hub.SendTo(socketID, frame)
}
