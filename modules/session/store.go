package session

import (
	"sync"
	"time"

	"github.com/example/collab-editor-demo/protocol"
)

// timeLayout renders transcript timestamps the way the client displays them.
const timeLayout = "3:04:05 PM"

// DefaultFile returns the document seeded into a room whose file set is empty
// at join time.
func DefaultFile() protocol.File {
	return protocol.File{
		ID:      "main-js",
		Name:    "main.js",
		Type:    "file",
		Content: "// Write your code here",
	}
}

// Store holds all per-room session state: the connection->username mapping,
// chat transcripts, and file trees. Group membership itself lives in the
// relay hub; the store only tracks state that outlives a broadcast.
//
// All accessors copy on read; the internal maps are never exposed.
type Store struct {
	mu         sync.RWMutex
	usernames  map[string]string                 // socketID -> display name
	messages   map[string][]protocol.ChatMessage // roomID -> transcript
	files      map[string][]protocol.File        // roomID -> file tree
	emptySince map[string]time.Time              // roomID -> when it was last seen empty

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		usernames:  make(map[string]string),
		messages:   make(map[string][]protocol.ChatMessage),
		files:      make(map[string][]protocol.File),
		emptySince: make(map[string]time.Time),
		now:        time.Now,
	}
}

// SetUsername records the display name for a connection.
func (s *Store) SetUsername(socketID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usernames[socketID] = username
}

// Username resolves a connection to its display name.
func (s *Store) Username(socketID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.usernames[socketID]
	return name, ok
}

// RemoveUsername erases the mapping for a disconnected socket and returns the
// last known name. Callers must notify peers before calling this.
func (s *Store) RemoveUsername(socketID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.usernames[socketID]
	delete(s.usernames, socketID)
	return name, ok
}

// Snapshot returns the transcript and file tree sent to a freshly joined
// connection. A room whose file set is empty is seeded with the default
// document under the lock, so concurrent first joins cannot double-seed.
// created reports whether this call materialized the room's state.
func (s *Store) Snapshot(roomID string) (msgs []protocol.ChatMessage, files []protocol.File, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.emptySince, roomID)

	if len(s.files[roomID]) == 0 {
		created = s.files[roomID] == nil && s.messages[roomID] == nil
		s.files[roomID] = []protocol.File{DefaultFile()}
	}

	msgs = make([]protocol.ChatMessage, len(s.messages[roomID]))
	copy(msgs, s.messages[roomID])
	files = make([]protocol.File, len(s.files[roomID]))
	copy(files, s.files[roomID])
	return msgs, files, created
}

// AppendMessage appends a chat message to a room's transcript, stamping it
// with the server clock.
func (s *Store) AppendMessage(roomID, username, message string) protocol.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := protocol.ChatMessage{
		Username:  username,
		Message:   message,
		Timestamp: s.now().Format(timeLayout),
	}
	s.messages[roomID] = append(s.messages[roomID], msg)
	return msg
}

// Messages returns a copy of a room's transcript.
func (s *Store) Messages(roomID string) []protocol.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]protocol.ChatMessage, len(s.messages[roomID]))
	copy(msgs, s.messages[roomID])
	return msgs
}

// CreateFile appends a document to a room's file tree.
func (s *Store) CreateFile(roomID string, f protocol.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[roomID] = append(s.files[roomID], f)
}

// UpdateFile overwrites a document's content. Returns false when the id is
// not present, in which case the request is a silent no-op.
func (s *Store) UpdateFile(roomID, fileID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.files[roomID] {
		if s.files[roomID][i].ID == fileID {
			s.files[roomID][i].Content = content
			return true
		}
	}
	return false
}

// RenameFile overwrites a document's name. Same missing-id rule as UpdateFile.
func (s *Store) RenameFile(roomID, fileID, newName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.files[roomID] {
		if s.files[roomID][i].ID == fileID {
			s.files[roomID][i].Name = newName
			return true
		}
	}
	return false
}

// DeleteFile removes a document by id. Returns false when the id is absent;
// no tombstone is kept.
func (s *Store) DeleteFile(roomID, fileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := s.files[roomID]
	for i := range files {
		if files[i].ID == fileID {
			s.files[roomID] = append(files[:i:i], files[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns a copy of a room's file tree.
func (s *Store) Files(roomID string) []protocol.File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]protocol.File, len(s.files[roomID]))
	copy(files, s.files[roomID])
	return files
}

// HasRoom reports whether any state exists for a room.
func (s *Store) HasRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, hasMsgs := s.messages[roomID]
	_, hasFiles := s.files[roomID]
	return hasMsgs || hasFiles
}

// RoomIDs returns the ids of all rooms with state.
func (s *Store) RoomIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.files))
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range s.messages {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// RoomCount returns the number of rooms with state.
func (s *Store) RoomCount() int {
	return len(s.RoomIDs())
}

// Sweep evicts rooms that have had no members for at least ttl. occupied
// reports current transport-level membership for a room. Rooms seen empty for
// the first time are stamped and survive until a later sweep finds them still
// empty past the grace period. Returns the evicted room ids.
func (s *Store) Sweep(ttl time.Duration, occupied func(roomID string) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var evicted []string
	for _, roomID := range s.roomIDsLocked() {
		if occupied(roomID) {
			delete(s.emptySince, roomID)
			continue
		}
		since, ok := s.emptySince[roomID]
		if !ok {
			s.emptySince[roomID] = now
			continue
		}
		if now.Sub(since) >= ttl {
			delete(s.messages, roomID)
			delete(s.files, roomID)
			delete(s.emptySince, roomID)
			evicted = append(evicted, roomID)
		}
	}
	return evicted
}

func (s *Store) roomIDsLocked() []string {
	seen := make(map[string]bool, len(s.files))
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range s.messages {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
