package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, 25, Pagination{PageSize: 25}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 500}.Size())
}

func TestCursorRoundTripAndRejects(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2025-03-01T09:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	empty, err := EncodeCursor(Cursor{})
	require.NoError(t, err)
	_, err = DecodeCursor(empty)
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestPageTrimsExtraRow(t *testing.T) {
	cursorOf := func(v int) Cursor { return Cursor{ID: "1", CreatedAt: "2025-03-01T09:00:00Z"} }

	items, info := Page([]int{1, 2, 3}, Pagination{PageSize: 2}, cursorOf)
	assert.Equal(t, []int{1, 2}, items)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	items, info = Page([]int{1, 2}, Pagination{PageSize: 2}, cursorOf)
	assert.Len(t, items, 2)
	assert.False(t, info.HasMore)
}
