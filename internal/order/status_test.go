package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusProcessing, StatusConfirmed, true},
		{StatusConfirmed, StatusDispatched, true},
		{StatusDispatched, StatusDelivered, true},
		{StatusProcessing, StatusDelivered, true}, // skipping forward is allowed
		{StatusConfirmed, StatusProcessing, false},
		{StatusDelivered, StatusDispatched, false},
		{StatusProcessing, StatusProcessing, false},
		{StatusProcessing, StatusCancelled, false}, // cancel is not a status update
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCancellable(t *testing.T) {
	assert.True(t, StatusProcessing.Cancellable())
	assert.True(t, StatusConfirmed.Cancellable())
	assert.False(t, StatusDispatched.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("dispatched")
	require.NoError(t, err)
	assert.Equal(t, StatusDispatched, st)

	_, err = ParseStatus("shipped")
	require.Error(t, err)
}
