package ime

import (
	"fmt"
	"time"
)

// repeater arms the repeat timer for at most one locally consumed key.
type repeater struct {
	timer Timer

	rate  int32 // repeats per second, 0 disables repeat
	delay time.Duration

	armed      bool
	key        Key
	generation uint64
}

func (r *repeater) setInfo(rate int32, delay time.Duration) error {
	r.rate = rate
	r.delay = delay
	return r.disarm()
}

// arm starts repeating key, replacing any key armed before.
func (r *repeater) arm(key Key) error {
	if r.rate <= 0 {
		return r.disarm()
	}
	r.generation++
	r.armed = true
	r.key = key
	interval := time.Second / time.Duration(r.rate)
	if err := r.timer.Arm(r.generation, r.delay, interval); err != nil {
		r.armed = false
		return fmt.Errorf("arm repeat timer: %w", err)
	}
	return nil
}

func (r *repeater) disarm() error {
	if !r.armed {
		return nil
	}
	r.armed = false
	r.generation++
	if err := r.timer.Disarm(); err != nil {
		return fmt.Errorf("disarm repeat timer: %w", err)
	}
	return nil
}

// releases reports whether releasing key ends the current repeat.
func (r *repeater) releases(key Key) bool {
	return r.armed && r.key == key
}

// current returns the armed key if generation is the live arming.
func (r *repeater) current(generation uint64) (Key, bool) {
	if !r.armed || generation != r.generation {
		return 0, false
	}
	return r.key, true
}
