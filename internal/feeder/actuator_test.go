package feeder

import (
	"sync"
	"testing"
	"time"

	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/hal"
)

func testConfig() config.DeviceConfig {
	cfg := config.Defaults()
	cfg.ServoOpenAngleDeg = 45
	cfg.ServoCloseAngleDeg = 10
	cfg.ServoOpenDelayMs = 800
	cfg.ServoSpeedPercent = 50
	return cfg
}

func waitCycleDone(t *testing.T, a *Actuator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for a.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("feed cycle did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFeedCycleProfile(t *testing.T) {
	servo := hal.NewMemoryServo()
	a := NewActuator(servo, 10)

	var mu sync.Mutex
	var sleeps []time.Duration
	a.sleep = func(d time.Duration) {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
	}

	if err := a.Start(testConfig()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitCycleDone(t, a)

	trace := servo.Trace()
	if len(trace) == 0 {
		t.Fatal("servo never moved")
	}

	// The horn must reach the open angle, then come back to closed.
	reachedOpen := false
	for _, deg := range trace {
		if deg == 45 {
			reachedOpen = true
		}
	}
	if !reachedOpen {
		t.Errorf("servo trace never reached open angle 45: %v", trace)
	}
	if last := trace[len(trace)-1]; last != 10 {
		t.Errorf("servo finished at %d, want close angle 10", last)
	}

	// 35 steps out + 35 steps back, one dwell each, plus the hold.
	if len(sleeps) != 71 {
		t.Errorf("sleep count = %d, want 71", len(sleeps))
	}

	// The open-position hold must match the configured delay.
	foundHold := false
	for _, d := range sleeps {
		if d == 800*time.Millisecond {
			foundHold = true
		}
	}
	if !foundHold {
		t.Error("no 800ms open hold in sleep sequence")
	}

	// At 50% speed each step dwells twice the base interval.
	if sleeps[0] != baseStepInterval*2 {
		t.Errorf("step dwell = %v, want %v", sleeps[0], baseStepInterval*2)
	}
}

func TestFeedCycleStepsByOneDegree(t *testing.T) {
	servo := hal.NewMemoryServo()
	a := NewActuator(servo, 0)
	a.sleep = func(time.Duration) {}

	cfg := config.Defaults() // open 90, close 0
	if err := a.Start(cfg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitCycleDone(t, a)

	prev := 0
	for i, deg := range servo.Trace() {
		diff := deg - prev
		if diff != 1 && diff != -1 {
			t.Fatalf("step %d jumped from %d to %d", i, prev, deg)
		}
		prev = deg
	}
}

func TestFeedCycleBusyRejection(t *testing.T) {
	servo := hal.NewMemoryServo()
	a := NewActuator(servo, 0)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	a.sleep = func(time.Duration) {
		once.Do(func() { close(started) })
		<-release
	}

	// The busy decision is synchronous: a second Start during the motion
	// is rejected before the cycle finishes.
	if err := a.Start(config.Defaults()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !a.Busy() {
		t.Error("Busy() = false immediately after Start")
	}

	<-started
	if err := a.Start(config.Defaults()); err != ErrBusy {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}

	close(release)
	waitCycleDone(t, a)
	if err := a.Start(config.Defaults()); err != nil {
		t.Errorf("Start() after completed cycle error = %v", err)
	}
	waitCycleDone(t, a)
}
