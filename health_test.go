package timetable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seqtransit/timetable"
)

func TestHealth(t *testing.T) {
	h := timetable.NewHealth()
	assert.False(t, h.Available())

	var seen []bool
	h.Subscribe(func(available bool) {
		seen = append(seen, available)
	})

	// Subscribing delivers the current state immediately.
	assert.Equal(t, []bool{false}, seen)

	h.SetAvailable(true)
	assert.True(t, h.Available())

	// Re-publishing the same value still notifies.
	h.SetAvailable(true)
	h.SetAvailable(false)
	assert.Equal(t, []bool{false, true, true, false}, seen)
}

func TestHealthMultipleSubscribers(t *testing.T) {
	h := timetable.NewHealth()

	a, b := 0, 0
	h.Subscribe(func(bool) { a++ })
	h.Subscribe(func(bool) { b++ })

	h.SetAvailable(true)
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}
