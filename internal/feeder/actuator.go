package feeder

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/hal"
	"github.com/IM-Lab-france/fishfeeder/internal/logging"
)

// ErrBusy reports a feed request while a cycle is already in progress.
// The request is rejected, not queued.
var ErrBusy = errors.New("feed cycle already in progress")

// baseStepInterval is the per-degree dwell at 100% speed. Lower speed
// percentages stretch this interval proportionally.
const baseStepInterval = 2 * time.Millisecond

// Actuator drives the servo through the open-hold-close motion profile.
// At most one cycle runs at a time; the controller enforces this, and the
// busy latch backstops it.
type Actuator struct {
	servo hal.Servo
	busy  atomic.Bool
	angle int

	// sleep is swapped out by tests to run cycles instantly.
	sleep func(time.Duration)
}

// NewActuator creates an actuator over the given servo, assumed parked at
// the closed position configured at boot.
func NewActuator(servo hal.Servo, closedAngle int) *Actuator {
	return &Actuator{servo: servo, angle: closedAngle, sleep: time.Sleep}
}

// Busy reports whether a feed cycle is currently in progress.
func (a *Actuator) Busy() bool {
	return a.busy.Load()
}

// Start begins one full open-hold-close sequence using the servo
// parameters of the given config snapshot. The busy decision is made
// synchronously: ErrBusy is returned immediately if a cycle is active, so
// the caller can acknowledge the rejection before the motion finishes.
// The motion itself runs in the background; motion errors are logged, the
// caller has already been answered.
//
// Angles are assumed validated upstream; out-of-range values never reach
// this component.
func (a *Actuator) Start(cfg config.DeviceConfig) error {
	if !a.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	go func() {
		defer a.busy.Store(false)
		if err := a.run(cfg); err != nil {
			logging.Error("Feed cycle failed", zap.Error(err))
		}
	}()
	return nil
}

func (a *Actuator) run(cfg config.DeviceConfig) error {
	interval := baseStepInterval * 100 / time.Duration(cfg.ServoSpeedPercent)

	logging.Info("Feed cycle started",
		zap.Int("open_angle", cfg.ServoOpenAngleDeg),
		zap.Int("close_angle", cfg.ServoCloseAngleDeg),
		zap.Int("open_delay_ms", cfg.ServoOpenDelayMs),
		zap.Int("speed_percent", cfg.ServoSpeedPercent),
	)

	if err := a.sweep(cfg.ServoOpenAngleDeg, interval); err != nil {
		return err
	}

	a.sleep(time.Duration(cfg.ServoOpenDelayMs) * time.Millisecond)

	if err := a.sweep(cfg.ServoCloseAngleDeg, interval); err != nil {
		return err
	}

	logging.Info("Feed cycle complete")
	return nil
}

// sweep moves the horn one degree at a time toward the target, dwelling
// interval per degree. Stepping keeps the dispensing rate consistent
// instead of letting the servo slew at full torque.
func (a *Actuator) sweep(target int, interval time.Duration) error {
	for a.angle != target {
		if a.angle < target {
			a.angle++
		} else {
			a.angle--
		}
		if err := a.servo.SetAngle(a.angle); err != nil {
			return fmt.Errorf("servo move to %d failed: %w", a.angle, err)
		}
		a.sleep(interval)
	}
	return nil
}
