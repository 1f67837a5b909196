// ABOUTME: Tests for message persistence and chronological listing
// ABOUTME: Covers insertion-order independence, tie-breaks and the no-cascade rule

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMessagesFor_SortedAscending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Save out of chronological order
	for _, i := range []int{2, 0, 3, 1} {
		msg := &Message{
			ID:         fmt.Sprintf("m%d", i),
			ContactID:  "c1",
			Content:    fmt.Sprintf("message %d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			IsOutgoing: i%2 == 0,
			Encrypted:  true,
		}
		require.NoError(t, db.SaveMessage(ctx, msg))
	}

	msgs, err := db.GetMessagesFor(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp),
			"messages out of order at %d", i)
	}
	assert.Equal(t, "m0", msgs[0].ID)
	assert.Equal(t, "m3", msgs[3].ID)
}

func TestGetMessagesFor_EqualTimestampsDeterministic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"m-c", "m-a", "m-b"} {
		require.NoError(t, db.SaveMessage(ctx, &Message{
			ID: id, ContactID: "c1", Content: id, Timestamp: ts,
		}))
	}

	first, err := db.GetMessagesFor(ctx, "c1")
	require.NoError(t, err)
	second, err := db.GetMessagesFor(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated calls must agree on tie order")
	assert.Equal(t, "m-a", first[0].ID)
}

func TestGetMessagesFor_FiltersByContact(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveMessage(ctx, &Message{ID: "m1", ContactID: "c1", Content: "hi", Timestamp: time.Now().UTC()}))
	require.NoError(t, db.SaveMessage(ctx, &Message{ID: "m2", ContactID: "c2", Content: "yo", Timestamp: time.Now().UTC()}))

	msgs, err := db.GetMessagesFor(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
}

func TestGetMessagesFor_Empty(t *testing.T) {
	db := newTestDB(t)

	msgs, err := db.GetMessagesFor(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDeleteContact_KeepsMessages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	contact := &Contact{ID: "c1", Name: "Bob", Username: "bob", SafetyNumber: "AB12-CD34-EF56-GH78", AddedAt: time.Now().UTC()}
	require.NoError(t, db.SaveContact(ctx, contact))
	require.NoError(t, db.SaveMessage(ctx, &Message{ID: "m1", ContactID: "c1", Content: "hi", Timestamp: time.Now().UTC()}))

	require.NoError(t, db.DeleteContact(ctx, "c1"))

	_, err := db.GetContact(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	// No cascade: history outlives the contact
	msgs, err := db.GetMessagesFor(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
