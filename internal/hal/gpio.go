package hal

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// DefaultButtonChip is the GPIO character device for the button line.
const DefaultButtonChip = "gpiochip0"

// DefaultButtonOffset matches the feed button wiring on the reference
// carrier board: button between the line and ground, pulled up internally.
const DefaultButtonOffset = 9

// GPIOButton reads the feed button through the Linux GPIO character device.
type GPIOButton struct {
	line      *gpiocdev.Line
	activeLow bool
}

// OpenButton requests the button line as a pulled-up input. activeLow
// should be true for the usual wiring (pressed shorts the line to ground).
func OpenButton(chip string, offset int, activeLow bool) (*GPIOButton, error) {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to request button line %s:%d: %w", chip, offset, err)
	}
	return &GPIOButton{line: line, activeLow: activeLow}, nil
}

// Pressed reports whether the button is currently held down.
func (b *GPIOButton) Pressed() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read button line: %w", err)
	}
	if b.activeLow {
		return v == 0, nil
	}
	return v == 1, nil
}

// Close releases the GPIO line.
func (b *GPIOButton) Close() error {
	return b.line.Close()
}
