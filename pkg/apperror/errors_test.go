package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("advance order: %w", Conflict("order status is %s", "accepted"))

	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, "advance order: order status is accepted", err.Error())
	require.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		Validation("quantity must be positive"): http.StatusBadRequest,
		NotFound("product not found"):           http.StatusNotFound,
		Forbidden("denied"):                     http.StatusForbidden,
		fmt.Errorf("x: %w", ErrValidation):      http.StatusBadRequest,
		errors.New("boom"):                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, StatusOf(err), err.Error())
	}
}

func TestWithContext(t *testing.T) {
	err := Conflict("stale").WithContext("current_status", "done")
	require.Equal(t, "done", err.Context["current_status"])
}
