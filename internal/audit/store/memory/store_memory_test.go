package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldledger/internal/audit/models"
	"fieldledger/pkg/domain"
	"fieldledger/pkg/platform/sentinel"
)

func newEvent(id int64, ts time.Time) models.Event {
	return models.Event{
		ID:        id,
		Subject:   domain.SubjectRef{Type: domain.SubjectFarmer, ID: "F-1"},
		Action:    models.ActionUpdate,
		Timestamp: ts,
	}
}

func TestAppendRejectsDuplicateIDs(t *testing.T) {
	store := New()
	ctx := context.Background()
	ts := time.Now().UTC()

	require.NoError(t, store.Append(ctx, newEvent(1, ts)))
	err := store.Append(ctx, newEvent(1, ts.Add(time.Second)))
	assert.ErrorIs(t, err, sentinel.ErrDuplicateIdentifier)
	assert.Equal(t, 1, store.Len())
}

func TestQueryReturnsTimestampThenIDOrder(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order, including two events sharing a timestamp.
	require.NoError(t, store.Append(ctx, newEvent(3, base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, newEvent(2, base)))
	require.NoError(t, store.Append(ctx, newEvent(1, base.Add(time.Minute))))

	events, err := store.Query(ctx, models.Filter{}, models.Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(2), events[0].ID)
	assert.Equal(t, int64(1), events[1].ID)
	assert.Equal(t, int64(3), events[2].ID)
}

func TestQueryResumesStrictlyAfterCursor(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, store.Append(ctx, newEvent(id, base)))
	}

	cursor := models.Cursor{Timestamp: base, ID: 3}
	events, err := store.Query(ctx, models.Filter{}, cursor, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(4), events[0].ID)
	assert.Equal(t, int64(5), events[1].ID)
}

func TestListAfterIDIgnoresTimestampOrder(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Event 2 has the earliest timestamp but a higher ID than event 1.
	require.NoError(t, store.Append(ctx, newEvent(1, base.Add(time.Hour))))
	require.NoError(t, store.Append(ctx, newEvent(2, base)))
	require.NoError(t, store.Append(ctx, newEvent(3, base.Add(time.Minute))))

	events, err := store.ListAfterID(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
	assert.Equal(t, int64(3), events[1].ID)
}
