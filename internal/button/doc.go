// Package button debounces the physical feed button and classifies press
// duration.
//
// The monitor is a four-state machine (idle, debouncing, pressed,
// releasing) sampled once per poll tick with an injected timestamp, which
// keeps it fully deterministic under test. A press released before the
// long-press threshold emits ShortPress (feed now); a longer hold emits
// LongPress (force access point mode). Both edges are debounced, so
// glitches shorter than the debounce window are ignored entirely in either
// direction.
package button
