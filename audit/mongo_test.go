package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestReadEntries_EmptyIsNotNil(t *testing.T) {
	cursor, err := mongo.NewCursorFromDocuments(nil, nil, nil)
	require.NoError(t, err)

	entries, err := readEntries(context.Background(), cursor)
	require.NoError(t, err)
	require.NotNil(t, entries)

	body, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestReadEntries_DecodesDocuments(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cursor, err := mongo.NewCursorFromDocuments([]interface{}{
		bson.M{"action": ActionLoginSuccess, "user_id": "u1", "created_at": at},
	}, nil, nil)
	require.NoError(t, err)

	entries, err := readEntries(context.Background(), cursor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionLoginSuccess, entries[0].Action)
	assert.Equal(t, "u1", entries[0].UserID)
	assert.True(t, at.Equal(entries[0].CreatedAt))
}
