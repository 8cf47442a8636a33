package hal

// ButtonInput reads the instantaneous level of the feed button line. The
// button monitor polls this once per tick; implementations must not block.
type ButtonInput interface {
	// Pressed reports whether the button is currently held down.
	Pressed() (bool, error)
	Close() error
}

// Servo positions the feeder drum. SetAngle moves directly to the target;
// motion profiling (stepping, speed) is layered on top by the actuator.
type Servo interface {
	// SetAngle drives the horn to the given angle in degrees. Callers
	// guarantee the angle is within the configured mechanical range.
	SetAngle(deg int) error
	Close() error
}
