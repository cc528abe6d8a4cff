package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	custom := New(KindTimeConflict, "spot 3 is taken between 10:00 and 12:00")

	assert.True(t, errors.Is(custom, ErrTimeConflict))
	assert.False(t, errors.Is(custom, ErrSpotNotFound))
	assert.True(t, errors.Is(fmt.Errorf("create booking: %w", custom), ErrTimeConflict))
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "not found", err: ErrBookingNotFound, expected: http.StatusNotFound},
		{name: "conflict", err: ErrTimeConflict, expected: http.StatusConflict},
		{name: "validation", err: ErrInvalidDateRange, expected: http.StatusBadRequest},
		{name: "forbidden", err: ErrForbidden, expected: http.StatusForbidden},
		{name: "wrapped", err: fmt.Errorf("outer: %w", ErrDuplicateClaim), expected: http.StatusConflict},
		{name: "infrastructure", err: errors.New("connection refused"), expected: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HTTPStatus(tc.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("wrap: %w", ErrAlreadyProcessed))
	assert.True(t, ok)
	assert.Equal(t, KindAlreadyProcessed, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
