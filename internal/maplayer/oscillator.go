package maplayer

import (
	"sync"
	"time"
)

// Oscillator drives a bounded triangle wave independent of the render
// cycle: the value walks between min and max, flipping direction at each
// bound. Used for the privacy circle's pulsing opacity. Start and Stop
// are explicit; a running oscillator that is never stopped is a leak.
type Oscillator struct {
	min      float64
	max      float64
	step     float64
	interval time.Duration
	apply    func(v float64)

	mu      sync.Mutex
	value   float64
	dir     float64
	stop    chan struct{}
	running bool
}

func NewOscillator(min, max, step float64, interval time.Duration, apply func(v float64)) *Oscillator {
	return &Oscillator{
		min:      min,
		max:      max,
		step:     step,
		interval: interval,
		apply:    apply,
		value:    min,
		dir:      1,
	}
}

func (o *Oscillator) Start() {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.stop = make(chan struct{})
	stop := o.stop
	o.mu.Unlock()

	go o.run(stop)
}

func (o *Oscillator) run(stop chan struct{}) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.apply(o.advance())
		case <-stop:
			return
		}
	}
}

// advance takes one triangle-wave step and returns the new value.
func (o *Oscillator) advance() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.value += o.dir * o.step
	if o.value >= o.max {
		o.value = o.max
		o.dir = -1
	} else if o.value <= o.min {
		o.value = o.min
		o.dir = 1
	}
	return o.value
}

// Stop cancels the loop. Idempotent; safe to call on a stopped oscillator.
func (o *Oscillator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return
	}
	o.running = false
	close(o.stop)
	o.stop = nil
	o.value = o.min
	o.dir = 1
}

func (o *Oscillator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}
