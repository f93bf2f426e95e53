package db_test

import (
	"testing"

	"bblaunch/internal/storage/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_NewestFirstWithLimit(t *testing.T) {
	database := newDB(t)

	for _, mod := range []string{"A", "B", "C"} {
		require.NoError(t, database.RecordEvent(db.HistoryEvent{
			InstallID: "bb",
			Mod:       mod,
			Action:    db.ActionActivate,
			Outcome:   db.OutcomeOK,
			OpID:      "op-" + mod,
		}))
	}
	require.NoError(t, database.RecordEvent(db.HistoryEvent{
		InstallID: "other", Mod: "Z", Action: db.ActionActivate, Outcome: db.OutcomeOK,
	}))

	events, err := database.GetHistory("bb", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "C", events[0].Mod)
	assert.Equal(t, "op-C", events[0].OpID)
	assert.Equal(t, "B", events[1].Mod)
	assert.False(t, events[0].CreatedAt.IsZero())

	all, err := database.GetHistory("bb", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistory_FailedEventKeepsDetail(t *testing.T) {
	database := newDB(t)

	require.NoError(t, database.RecordEvent(db.HistoryEvent{
		InstallID: "bb",
		Mod:       "A",
		Action:    db.ActionDeactivate,
		Outcome:   db.OutcomeFailed,
		Detail:    "conflicting mods must be deactivated in reverse order",
	}))

	events, err := database.GetHistory("bb", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, db.OutcomeFailed, events[0].Outcome)
	assert.Contains(t, events[0].Detail, "reverse order")
}
