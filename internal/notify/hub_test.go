package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversPerUser(t *testing.T) {
	hub := NewHub(nil)
	mine, cancelMine := hub.Subscribe(1, 4)
	defer cancelMine()
	theirs, cancelTheirs := hub.Subscribe(2, 4)
	defer cancelTheirs()

	require.NoError(t, hub.Publish(context.Background(), Alert{BreachID: 9, UserID: 1, RuleKey: "loss_streak_day"}))

	select {
	case a := <-mine:
		assert.Equal(t, uint64(9), a.BreachID)
	case <-time.After(time.Second):
		t.Fatal("alert not delivered")
	}
	select {
	case a := <-theirs:
		t.Fatalf("unexpected alert %+v", a)
	default:
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub(nil)
	_, cancel := hub.Subscribe(1, 1)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Publish(context.Background(), Alert{UserID: 1}))
	}
	assert.Equal(t, uint64(2), hub.Dropped())
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe(1, 1)
	assert.Equal(t, 1, hub.Subscribers(1))
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers(1))
	require.NoError(t, hub.Publish(context.Background(), Alert{UserID: 1}))
}

func TestEncodeDecode(t *testing.T) {
	in := Alert{BreachID: 3, UserID: 1, Scope: "week", DateOrWeek: "2024-W10", Details: map[string]any{"max": float64(2)}}
	raw, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in.DateOrWeek, out.DateOrWeek)
	assert.Equal(t, in.Details, out.Details)
}
