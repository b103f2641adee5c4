package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatusFromGRPC(t *testing.T) {
	t.Run("InvalidArgument -> 400", func(t *testing.T) {
		err := status.Error(codes.InvalidArgument, "bad")
		gotStatus, gotCode, _ := HTTPStatus(err)
		if gotStatus != http.StatusBadRequest || gotCode != "INVALID_ARGUMENT" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("NotFound -> 404", func(t *testing.T) {
		err := status.Error(codes.NotFound, "missing")
		gotStatus, gotCode, _ := HTTPStatus(err)
		if gotStatus != http.StatusNotFound || gotCode != "NOT_FOUND" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("Unavailable -> 503", func(t *testing.T) {
		err := status.Error(codes.Unavailable, "down")
		gotStatus, gotCode, _ := HTTPStatus(err)
		if gotStatus != http.StatusServiceUnavailable || gotCode != "UNAVAILABLE" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("DeadlineExceeded -> 503", func(t *testing.T) {
		err := status.Error(codes.DeadlineExceeded, "timeout")
		gotStatus, gotCode, _ := HTTPStatus(err)
		if gotStatus != http.StatusServiceUnavailable || gotCode != "UNAVAILABLE" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("non-grpc error -> 500", func(t *testing.T) {
		err := errors.New("boom")
		gotStatus, gotCode, msg := HTTPStatus(err)
		if gotStatus != http.StatusInternalServerError || gotCode != "INTERNAL" || msg != "internal error" {
			t.Fatalf("got (%d,%s,%s)", gotStatus, gotCode, msg)
		}
	})
}

func TestKinds(t *testing.T) {
	errCartMissing := New(ErrNotFound, "cart not found")
	wrapped := fmt.Errorf("load: %w", errCartMissing)

	require.ErrorIs(t, wrapped, errCartMissing)
	require.ErrorIs(t, wrapped, ErrNotFound)
	require.Equal(t, ErrNotFound, Kind(wrapped))
	require.Nil(t, Kind(errors.New("other")))

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{New(ErrNotFound, "x"), http.StatusNotFound, "NOT_FOUND"},
		{New(ErrConflict, "x"), http.StatusConflict, "CONFLICT"},
		{New(ErrValidation, "x"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{New(ErrUnavailable, "x"), http.StatusServiceUnavailable, "UNAVAILABLE"},
	}
	for _, tc := range tests {
		gotStatus, gotCode, msg := HTTPStatus(tc.err)
		require.Equal(t, tc.status, gotStatus)
		require.Equal(t, tc.code, gotCode)
		require.Equal(t, "x", msg)
	}
}

func TestToStatusHidesInternalErrors(t *testing.T) {
	s, ok := status.FromError(ToStatus(errors.New("db password leaked")))
	require.True(t, ok)
	require.Equal(t, codes.Internal, s.Code())
	require.Equal(t, "internal error", s.Message())

	s, _ = status.FromError(ToStatus(New(ErrConflict, "cart already exists")))
	require.Equal(t, codes.AlreadyExists, s.Code())
	require.Equal(t, "cart already exists", s.Message())
}
