package protocol

// Action names carried in the "type" field of every WebSocket frame.
// These are shared with the browser client and must not change.
const (
	ActionJoin            = "join"
	ActionJoined          = "joined"
	ActionDisconnected    = "disconnected"
	ActionCodeChange      = "code-change"
	ActionSyncCode        = "sync-code"
	ActionSendMessage     = "send-message"
	ActionReceiveMessage  = "receive-message"
	ActionSyncChat        = "sync-chat"
	ActionTypingStart     = "typing-start"
	ActionTypingStop      = "typing-stop"
	ActionExecutionResult = "execution-result"
	ActionSignal          = "signal-code"
	ActionDrawingUpdate   = "drawing-update"
	ActionQuestionChange  = "question-change"
	ActionSyncInput       = "sync-input"
	ActionSyncFiles       = "sync-files"
	ActionFileCreated     = "file-created"
	ActionFileUpdated     = "file-updated"
	ActionFileRenamed     = "file-renamed"
	ActionFileDeleted     = "file-deleted"
	ActionError           = "error"
)
