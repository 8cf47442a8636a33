package button

import (
	"time"

	"github.com/IM-Lab-france/fishfeeder/internal/hal"
)

const (
	// DebounceInterval is how long a raw level change must hold stable
	// before it is accepted as a real transition.
	DebounceInterval = 50 * time.Millisecond

	// LongPressThreshold separates a feed request from the force-AP
	// override.
	LongPressThreshold = 3 * time.Second
)

// Event classifies one press/release cycle. At most one event is emitted
// per cycle.
type Event int

const (
	// None means no completed press this poll.
	None Event = iota
	// ShortPress is a press held past the debounce window but released
	// before the long-press threshold. It requests a feed cycle.
	ShortPress
	// LongPress is a press held past the long-press threshold. It forces
	// access point mode for re-provisioning.
	LongPress
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case None:
		return "none"
	case ShortPress:
		return "short_press"
	case LongPress:
		return "long_press"
	default:
		return "unknown"
	}
}

type state int

const (
	stateIdle state = iota
	stateDebouncing
	statePressed
	stateReleasing
)

// Monitor samples the button line once per poll and turns raw levels into
// debounced press events. Both edges are debounced: a level change in
// either direction must hold for the debounce window before it counts.
// The monitor must be polled faster than the debounce window or edges can
// be missed.
type Monitor struct {
	input        hal.ButtonInput
	state        state
	pressStart   time.Time // time of the initial raw press edge
	releaseStart time.Time // time of the initial raw release edge
}

// NewMonitor creates a monitor over the given input line.
func NewMonitor(input hal.ButtonInput) *Monitor {
	return &Monitor{input: input}
}

// Poll samples the line once. Press duration is measured from the raw
// press edge to the raw release edge; a level that reverts before the
// debounce window elapses is a glitch and registers nothing in either
// direction.
func (m *Monitor) Poll(now time.Time) (Event, error) {
	level, err := m.input.Pressed()
	if err != nil {
		return None, err
	}

	switch m.state {
	case stateIdle:
		if level {
			m.state = stateDebouncing
			m.pressStart = now
		}

	case stateDebouncing:
		if !level {
			// Glitch shorter than the debounce window.
			m.state = stateIdle
		} else if now.Sub(m.pressStart) >= DebounceInterval {
			m.state = statePressed
		}

	case statePressed:
		if !level {
			m.state = stateReleasing
			m.releaseStart = now
		}

	case stateReleasing:
		if level {
			// Glitch low during the hold; the press continues.
			m.state = statePressed
		} else if now.Sub(m.releaseStart) >= DebounceInterval {
			m.state = stateIdle
			if m.releaseStart.Sub(m.pressStart) >= LongPressThreshold {
				return LongPress, nil
			}
			return ShortPress, nil
		}
	}

	return None, nil
}
