package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" paid ")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, st)

	_, err = ParseStatus("LOST")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelIsTerminal(t *testing.T) {
	o := Order{Status: StatusPaid}

	require.True(t, o.Cancel())
	require.False(t, o.Cancel())
	require.True(t, o.IsCanceled())

	for _, next := range []Status{StatusPlaced, StatusPaid, StatusShipped} {
		require.ErrorIs(t, o.TransitionTo(next), ErrOrderCanceled)
	}
	require.Equal(t, StatusCanceled, o.Status)
}

func TestTransitionTo(t *testing.T) {
	o := Order{Status: StatusPlaced}

	require.NoError(t, o.TransitionTo(StatusPaid))
	require.NoError(t, o.TransitionTo(StatusPaid))
	require.NoError(t, o.TransitionTo(StatusShipped))
	require.ErrorIs(t, o.TransitionTo(StatusPlaced), ErrInvalidTransition)
	require.ErrorIs(t, o.TransitionTo(StatusCanceled), ErrInvalidTransition)
	require.Equal(t, StatusShipped, o.Status)
}
