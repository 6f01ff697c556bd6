package maplayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	a, _ := bus.Subscribe()
	b, _ := bus.Subscribe()

	bus.Publish(RadiusChanged{RadiusKm: 3})

	assert.Equal(t, RadiusChanged{RadiusKm: 3}, <-a)
	assert.Equal(t, RadiusChanged{RadiusKm: 3}, <-b)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, unsubscribe := bus.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.Publish(RadiusChanged{RadiusKm: 3})
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Nobody drains this subscriber; fill past its buffer.
	bus.Subscribe()
	for i := 0; i < 200; i++ {
		bus.Publish(ZoomChanged{Resolution: float64(i)})
	}
}

func TestBus_CloseClosesSubscribers(t *testing.T) {
	bus := NewBus()
	ch, _ := bus.Subscribe()

	bus.Close()
	bus.Close()

	_, ok := <-ch
	require.False(t, ok)

	// Late subscribers get an already-closed channel.
	late, _ := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
