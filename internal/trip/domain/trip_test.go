package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	for _, s := range []string{"REQUESTED", "STARTED", "IN_PROGRESS", "COMPLETED"} {
		assert.True(t, ValidStatus(s), s)
	}
	for _, s := range []string{"", "requested", "CANCELLED", "DONE"} {
		assert.False(t, ValidStatus(s), s)
	}
}

func TestForwardTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		forward  bool
	}{
		{StatusRequested, StatusStarted, true},
		{StatusStarted, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusRequested, StatusInProgress, false}, // пропуск статуса
		{StatusRequested, StatusCompleted, false},
		{StatusStarted, StatusRequested, false}, // назад
		{StatusCompleted, StatusRequested, false},
		{StatusStarted, StatusStarted, false}, // на месте
	}

	for _, tt := range tests {
		assert.Equal(t, tt.forward, ForwardTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsActive(t *testing.T) {
	for _, s := range []Status{StatusRequested, StatusStarted, StatusInProgress} {
		trip := Trip{Status: s}
		assert.True(t, trip.IsActive(), s)
	}

	done := Trip{Status: StatusCompleted}
	assert.False(t, done.IsActive())
}
