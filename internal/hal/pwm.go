package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Standard hobby servo signal: 20 ms frame, 500-2500 us pulse width.
const (
	servoPeriod   = 20 * time.Millisecond
	servoPulseMin = 500 * time.Microsecond
	servoPulseMax = 2500 * time.Microsecond
)

// PWMServo drives the feeder servo through the Linux sysfs PWM interface.
// The feeder uses a multi-turn sail winch servo, so the full configured
// angle range maps onto the pulse width range linearly.
type PWMServo struct {
	dir      string // pwm channel directory, e.g. /sys/class/pwm/pwmchip0/pwm0
	minAngle int
	maxAngle int
}

// OpenPWMServo exports the given channel on the given pwmchip and
// configures the servo frame. minAngle/maxAngle define the mechanical
// range that spans the full pulse width range.
func OpenPWMServo(chip, channel, minAngle, maxAngle int) (*PWMServo, error) {
	if minAngle >= maxAngle {
		return nil, fmt.Errorf("invalid servo range %d..%d", minAngle, maxAngle)
	}

	chipDir := fmt.Sprintf("/sys/class/pwm/pwmchip%d", chip)
	dir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel))

	// Export is idempotent in effect: EBUSY means already exported.
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeSysfs(filepath.Join(chipDir, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("failed to export pwm%d: %w", channel, err)
		}
	}

	s := &PWMServo{dir: dir, minAngle: minAngle, maxAngle: maxAngle}

	if err := writeSysfs(filepath.Join(dir, "period"), strconv.FormatInt(servoPeriod.Nanoseconds(), 10)); err != nil {
		return nil, fmt.Errorf("failed to set pwm period: %w", err)
	}
	// Park at the midpoint before enabling so the first frame is sane.
	if err := s.SetAngle((minAngle + maxAngle) / 2); err != nil {
		return nil, err
	}
	if err := writeSysfs(filepath.Join(dir, "enable"), "1"); err != nil {
		return nil, fmt.Errorf("failed to enable pwm: %w", err)
	}

	return s, nil
}

// SetAngle drives the horn to the given angle in degrees.
func (s *PWMServo) SetAngle(deg int) error {
	if deg < s.minAngle {
		deg = s.minAngle
	}
	if deg > s.maxAngle {
		deg = s.maxAngle
	}

	span := s.maxAngle - s.minAngle
	pulseSpan := servoPulseMax - servoPulseMin
	pulse := servoPulseMin + time.Duration(int64(pulseSpan)*int64(deg-s.minAngle)/int64(span))

	if err := writeSysfs(filepath.Join(s.dir, "duty_cycle"), strconv.FormatInt(pulse.Nanoseconds(), 10)); err != nil {
		return fmt.Errorf("failed to set pwm duty cycle: %w", err)
	}
	return nil
}

// Close disables the PWM output. The channel stays exported so a restart
// does not glitch the servo line.
func (s *PWMServo) Close() error {
	return writeSysfs(filepath.Join(s.dir, "enable"), "0")
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0644)
}
