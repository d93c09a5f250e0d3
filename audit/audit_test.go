package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogRecorder_LevelsByAction(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewLogRecorder(zap.New(core))

	r.Record(context.Background(), Entry{Action: ActionLoginSuccess, UserID: "u1"})
	r.Record(context.Background(), Entry{Action: ActionRefreshReuse, UserID: "u1"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, ActionRefreshReuse, entries[1].ContextMap()["action"])
}

func TestMemory_RecentNewestFirst(t *testing.T) {
	m := &Memory{}
	ctx := context.Background()
	m.Record(ctx, Entry{Action: ActionRegister, UserID: "u1"})
	m.Record(ctx, Entry{Action: ActionLoginSuccess, UserID: "u2"})
	m.Record(ctx, Entry{Action: ActionLogout, UserID: "u1"})

	got, err := m.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionLogout, got[0].Action)
	assert.Equal(t, []string{ActionRegister, ActionLoginSuccess, ActionLogout}, m.Actions())
}
