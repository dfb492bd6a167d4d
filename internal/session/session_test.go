package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena-server/internal/model"
)

func TestNewSessionIDFormat(t *testing.T) {
	// 2024-03-05 14:07 UTC
	id := NewSessionID(1709647620000)
	assert.Regexp(t, `^\d{6}/\d{2}:\d{2}$`, id)
}

func TestStartAndEndLifecycle(t *testing.T) {
	r := NewRegistry()
	s := r.Start("id1", "ROOM1", model.ModeMulti, 1000)
	require.NotNil(t, s)

	winner := &model.Winner{PlayerID: "p1", Name: "Alice", Score: 40}
	r.End("id1", EndWinnerDeclared, winner, []PlayerSnapshot{{ID: "p1", Name: "Alice", Score: 40, Alive: false}}, 5000)

	history := r.History(func(string) bool { return false })
	require.Len(t, history, 1)
	assert.True(t, history[0].HasWinner)
	assert.Equal(t, "Alice", history[0].WinnerName)
	assert.Equal(t, 4, history[0].DurationSeconds)
	assert.False(t, history[0].IsActive)
}

func TestEndIsNoopWhenAlreadyEndedOrUnknown(t *testing.T) {
	r := NewRegistry()
	r.Start("id1", "ROOM1", model.ModeSolo, 0)
	r.End("id1", EndTimeout, nil, nil, 100)
	r.End("id1", EndGameEnded, nil, nil, 999) // second call must not override
	r.End("missing", EndCrashed, nil, nil, 999)

	s := r.sessions["id1"]
	require.NotNil(t, s)
	assert.Equal(t, EndTimeout, s.EndReason)
	assert.Equal(t, int64(100), s.EndEpochMs)
}

func TestSweepClosesDeletedRoomsAndStaleSessions(t *testing.T) {
	r := NewRegistry()
	r.Start("gone", "ROOMX", model.ModeMulti, 0)
	r.Start("stale", "ROOMY", model.ModeMulti, 0)

	r.Sweep(staleAfter.Milliseconds()+1, func(code string) bool {
		return code == "ROOMY" // ROOMX no longer exists, ROOMY still does but is stale
	})

	history := r.History(func(string) bool { return true })
	byID := map[string]HistoryEntry{}
	for _, h := range history {
		byID[h.SessionID] = h
	}
	assert.False(t, byID["gone"].IsActive)
	assert.False(t, byID["stale"].IsActive)
}

func TestHistoryReturnsTopFiveNewestFirst(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 7; i++ {
		r.Start(string(rune('a'+i)), "ROOM", model.ModeMulti, int64(i*1000))
	}

	history := r.History(func(string) bool { return false })
	require.Len(t, history, 5)
	// Newest-started session ("g", startEpochMs=6000) should be first.
	assert.Equal(t, "g", history[0].SessionID)
}

func TestHistoryIsActiveReflectsCallback(t *testing.T) {
	r := NewRegistry()
	r.Start("id1", "ROOM1", model.ModeMulti, 0)

	history := r.History(func(code string) bool { return code == "ROOM1" })
	require.Len(t, history, 1)
	assert.True(t, history[0].IsActive)
}
