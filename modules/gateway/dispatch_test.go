package gateway

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/collab-editor-demo/modules/relay"
	"github.com/example/collab-editor-demo/modules/session"
	"github.com/example/collab-editor-demo/protocol"
)

// fakeConn records frames delivered through a client's write pump.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// decoded parses every recorded frame back into its envelope.
func (c *fakeConn) decoded(t *testing.T) []protocol.Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	frames := make([]protocol.Frame, len(c.frames))
	for i, raw := range c.frames {
		if err := json.Unmarshal(raw, &frames[i]); err != nil {
			t.Fatalf("frame %d is not a valid envelope: %v", i, err)
		}
	}
	return frames
}

func newGateway() *Module {
	hub := relay.NewHub()
	return &Module{
		session: session.NewModule(hub.Occupied),
		hub:     hub,
	}
}

func connect(m *Module, id string) *fakeConn {
	conn := &fakeConn{}
	client := relay.NewClient(id, conn)
	m.hub.Register(client)
	go client.WritePump()
	return conn
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func join(t *testing.T, m *Module, socketID, roomID, username string) {
	t.Helper()
	m.dispatch(socketID, protocol.Frame{
		Type:    protocol.ActionJoin,
		Payload: mustPayload(t, protocol.JoinPayload{RoomID: roomID, Username: username}),
	})
}

func waitFrames(t *testing.T, conn *fakeConn, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if conn.frameCount() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, got %d", want, conn.frameCount())
}

func unmarshalPayload(t *testing.T, frame protocol.Frame, v any) {
	t.Helper()
	if err := json.Unmarshal(frame.Payload, v); err != nil {
		t.Fatalf("unmarshal %s payload: %v", frame.Type, err)
	}
}

func TestJoinAnnouncesMembershipAndSnapshots(t *testing.T) {
	m := newGateway()
	a := connect(m, "sock-a")

	join(t, m, "sock-a", "room-1", "alice")
	waitFrames(t, a, 3)

	frames := a.decoded(t)
	if frames[0].Type != protocol.ActionJoined {
		t.Fatalf("first frame = %s, want joined", frames[0].Type)
	}
	var joined protocol.JoinedBroadcast
	unmarshalPayload(t, frames[0], &joined)
	if joined.Username != "alice" || joined.SocketID != "sock-a" {
		t.Errorf("joined payload = %+v", joined)
	}
	if len(joined.Clients) != 1 || joined.Clients[0].Username != "alice" {
		t.Errorf("membership list = %+v", joined.Clients)
	}

	// Snapshots go to the joiner only, after the announcement.
	if frames[1].Type != protocol.ActionSyncChat {
		t.Errorf("second frame = %s, want sync-chat", frames[1].Type)
	}
	if frames[2].Type != protocol.ActionSyncFiles {
		t.Fatalf("third frame = %s, want sync-files", frames[2].Type)
	}
	var files protocol.SyncFilesBroadcast
	unmarshalPayload(t, frames[2], &files)
	if len(files.Files) != 1 || files.Files[0].ID != session.DefaultFile().ID {
		t.Errorf("snapshot files = %+v", files.Files)
	}

	// A second joiner: every member gets the refreshed list, only the
	// joiner gets the snapshots.
	b := connect(m, "sock-b")
	join(t, m, "sock-b", "room-1", "bob")
	waitFrames(t, b, 3)
	waitFrames(t, a, 4)

	aFrames := a.decoded(t)
	if aFrames[3].Type != protocol.ActionJoined {
		t.Fatalf("existing member got %s, want joined", aFrames[3].Type)
	}
	unmarshalPayload(t, aFrames[3], &joined)
	if len(joined.Clients) != 2 || joined.Username != "bob" {
		t.Errorf("second joined payload = %+v", joined)
	}

	bFrames := b.decoded(t)
	if bFrames[0].Type != protocol.ActionJoined || bFrames[1].Type != protocol.ActionSyncChat || bFrames[2].Type != protocol.ActionSyncFiles {
		t.Errorf("joiner frame sequence = %s, %s, %s", bFrames[0].Type, bFrames[1].Type, bFrames[2].Type)
	}

	time.Sleep(50 * time.Millisecond)
	if a.frameCount() != 4 {
		t.Errorf("existing member received %d frames, want 4 (no snapshot replay)", a.frameCount())
	}
}

func TestJoinAcceptsArbitraryUsernames(t *testing.T) {
	m := newGateway()
	a := connect(m, "sock-a")

	longName := strings.Repeat("n", 60)
	join(t, m, "sock-a", "room-1", longName)
	waitFrames(t, a, 3)

	var joined protocol.JoinedBroadcast
	unmarshalPayload(t, a.decoded(t)[0], &joined)
	if joined.Username != longName {
		t.Errorf("joined username = %q, want the 60-char name", joined.Username)
	}
	if name, ok := m.session.Username("sock-a"); !ok || name != longName {
		t.Errorf("registered username = %q, %v", name, ok)
	}
}

func TestSendMessageSkipsSender(t *testing.T) {
	m := newGateway()
	a := connect(m, "sock-a")
	b := connect(m, "sock-b")
	c := connect(m, "sock-c")
	join(t, m, "sock-a", "room-1", "alice")
	join(t, m, "sock-b", "room-1", "bob")
	join(t, m, "sock-c", "room-1", "carol")
	waitFrames(t, a, 5) // own join + two membership refreshes
	waitFrames(t, b, 4)
	waitFrames(t, c, 3)
	aBaseline := a.frameCount()

	longText := strings.Repeat("m", 6000)
	m.dispatch("sock-a", protocol.Frame{
		Type:    protocol.ActionSendMessage,
		Payload: mustPayload(t, protocol.SendMessagePayload{RoomID: "room-1", Username: "alice", Message: longText}),
	})
	waitFrames(t, b, 5)
	waitFrames(t, c, 4)

	for _, conn := range []*fakeConn{b, c} {
		frames := conn.decoded(t)
		last := frames[len(frames)-1]
		if last.Type != protocol.ActionReceiveMessage {
			t.Fatalf("peer got %s, want receive-message", last.Type)
		}
		var msg protocol.ReceiveMessageBroadcast
		unmarshalPayload(t, last, &msg)
		if msg.Username != "alice" || msg.Message != longText {
			t.Errorf("relayed message = username %q, %d bytes", msg.Username, len(msg.Message))
		}
	}

	time.Sleep(50 * time.Millisecond)
	if a.frameCount() != aBaseline {
		t.Errorf("sender received its own message back (%d frames, baseline %d)", a.frameCount(), aBaseline)
	}

	msgs := m.session.Messages("room-1")
	if len(msgs) != 1 || msgs[0].Message != longText {
		t.Errorf("transcript = %d messages", len(msgs))
	}
}

func TestDisconnectNotifiesPeersThenForgets(t *testing.T) {
	m := newGateway()
	connect(m, "sock-a")
	b := connect(m, "sock-b")
	join(t, m, "sock-a", "room-1", "alice")
	join(t, m, "sock-b", "room-1", "bob")
	waitFrames(t, b, 3)
	bBaseline := b.frameCount()

	m.handleDisconnect("sock-a")
	waitFrames(t, b, bBaseline+1)

	frames := b.decoded(t)
	var gone []protocol.DisconnectedBroadcast
	for _, f := range frames {
		if f.Type == protocol.ActionDisconnected {
			var p protocol.DisconnectedBroadcast
			unmarshalPayload(t, f, &p)
			gone = append(gone, p)
		}
	}
	if len(gone) != 1 {
		t.Fatalf("peer received %d disconnected frames, want 1", len(gone))
	}
	// The last-known name rides the notification even though the mapping is
	// erased right after.
	if gone[0].SocketID != "sock-a" || gone[0].Username != "alice" {
		t.Errorf("disconnected payload = %+v", gone[0])
	}

	if _, ok := m.session.Username("sock-a"); ok {
		t.Error("username mapping survived the disconnect")
	}
	if m.hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d after disconnect, want 1", m.hub.ClientCount())
	}
}

func TestSyncCodeTargetsOneSocket(t *testing.T) {
	m := newGateway()
	a := connect(m, "sock-a")
	connect(m, "sock-b")
	c := connect(m, "sock-c")
	join(t, m, "sock-a", "room-1", "alice")
	join(t, m, "sock-b", "room-1", "bob")
	join(t, m, "sock-c", "room-1", "carol")
	waitFrames(t, a, 5)
	waitFrames(t, c, 3)
	aBaseline := a.frameCount()
	cBaseline := c.frameCount()

	m.dispatch("sock-b", protocol.Frame{
		Type:    protocol.ActionSyncCode,
		Payload: mustPayload(t, protocol.SyncCodePayload{SocketID: "sock-a", Code: "int main() {}"}),
	})
	waitFrames(t, a, aBaseline+1)

	frames := a.decoded(t)
	last := frames[len(frames)-1]
	if last.Type != protocol.ActionCodeChange {
		t.Fatalf("target got %s, want code-change", last.Type)
	}
	var code protocol.CodeBroadcast
	unmarshalPayload(t, last, &code)
	if code.Code != "int main() {}" {
		t.Errorf("code = %q", code.Code)
	}

	time.Sleep(50 * time.Millisecond)
	if c.frameCount() != cBaseline {
		t.Error("sync-code leaked to a non-target member")
	}
}

func TestUnknownActionGetsErrorFrame(t *testing.T) {
	m := newGateway()
	a := connect(m, "sock-a")

	m.dispatch("sock-a", protocol.Frame{Type: "bogus-action"})
	waitFrames(t, a, 1)

	frame := a.decoded(t)[0]
	if frame.Type != protocol.ActionError {
		t.Fatalf("frame type = %s, want error", frame.Type)
	}
	if !strings.Contains(frame.Error, "bogus-action") {
		t.Errorf("error text = %q", frame.Error)
	}
}

func TestMalformedPayloadGetsErrorFrame(t *testing.T) {
	m := newGateway()
	a := connect(m, "sock-a")

	m.dispatch("sock-a", protocol.Frame{
		Type:    protocol.ActionJoin,
		Payload: json.RawMessage(`{"roomId":5}`),
	})
	waitFrames(t, a, 1)

	if got := a.decoded(t)[0].Type; got != protocol.ActionError {
		t.Errorf("frame type = %s, want error", got)
	}
}

func TestFileUpdateUnknownIDIsSilent(t *testing.T) {
	m := newGateway()
	connect(m, "sock-a")
	b := connect(m, "sock-b")
	join(t, m, "sock-a", "room-1", "alice")
	join(t, m, "sock-b", "room-1", "bob")
	waitFrames(t, b, 3)
	bBaseline := b.frameCount()

	m.dispatch("sock-a", protocol.Frame{
		Type:    protocol.ActionFileUpdated,
		Payload: mustPayload(t, protocol.FileUpdatedPayload{RoomID: "room-1", FileID: "ghost", Content: "x"}),
	})

	time.Sleep(50 * time.Millisecond)
	if b.frameCount() != bBaseline {
		t.Error("update of an unknown file id was broadcast")
	}
}
