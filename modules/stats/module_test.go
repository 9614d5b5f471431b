package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/collab-editor-demo/events"
)

func TestSnapshotStartsAtZero(t *testing.T) {
	m := NewModule()
	assert.Equal(t, Counters{}, m.Snapshot())
}

func TestCountersIncrement(t *testing.T) {
	m := NewModule()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = m.handleMemberJoined(ctx, events.MemberJoinedEvent{}, nil)
	}
	_ = m.handleMemberLeft(ctx, events.MemberLeftEvent{}, nil)
	_ = m.handleMessageSent(ctx, events.MessageSentEvent{}, nil)
	_ = m.handleMessageSent(ctx, events.MessageSentEvent{}, nil)
	_ = m.handleRoomCreated(ctx, events.RoomCreatedEvent{}, nil)
	_ = m.handleExecutionFinished(ctx, events.ExecutionFinishedEvent{}, nil)

	got := m.Snapshot()
	assert.Equal(t, Counters{
		Joins:        3,
		Leaves:       1,
		Messages:     2,
		RoomsCreated: 1,
		Executions:   1,
	}, got)
}

func TestSnapshotIsCopy(t *testing.T) {
	m := NewModule()
	_ = m.handleMemberJoined(context.Background(), events.MemberJoinedEvent{}, nil)

	snap := m.Snapshot()
	snap.Joins = 100

	assert.Equal(t, int64(1), m.Snapshot().Joins)
}
