package hal

import "sync"

// MemoryButton is an in-memory ButtonInput. It backs unit tests and the
// daemon's --simulate mode, where hardware access is replaced by fakes.
type MemoryButton struct {
	mu      sync.Mutex
	pressed bool
}

// NewMemoryButton returns a released button.
func NewMemoryButton() *MemoryButton {
	return &MemoryButton{}
}

// Press latches the button down.
func (b *MemoryButton) Press() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pressed = true
}

// Release latches the button up.
func (b *MemoryButton) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pressed = false
}

// Pressed reports the latched level.
func (b *MemoryButton) Pressed() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pressed, nil
}

// Close implements ButtonInput.
func (b *MemoryButton) Close() error { return nil }

// MemoryServo is an in-memory Servo that records every commanded angle.
type MemoryServo struct {
	mu    sync.Mutex
	angle int
	trace []int
}

// NewMemoryServo returns a servo parked at angle 0.
func NewMemoryServo() *MemoryServo {
	return &MemoryServo{}
}

// SetAngle records the commanded angle.
func (s *MemoryServo) SetAngle(deg int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.angle = deg
	s.trace = append(s.trace, deg)
	return nil
}

// Angle returns the last commanded angle.
func (s *MemoryServo) Angle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

// Trace returns a copy of every commanded angle in order.
func (s *MemoryServo) Trace() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.trace))
	copy(out, s.trace)
	return out
}

// Close implements Servo.
func (s *MemoryServo) Close() error { return nil }
