package wifi

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock safe to read from the backend's
// background goroutines.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(2000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newConnectedBackend(clock *fakeClock, run commandRunner) *NmcliBackend {
	b := NewNmcliBackend("wlan0")
	b.now = clock.now
	b.run = run
	b.result = LinkUp
	b.lastRefresh = clock.now()
	return b
}

func waitStatus(t *testing.T, b *NmcliBackend, want LinkStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := b.Status()
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if st == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Status() = %v, want %v", st, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNmcliStatusDoesNotSpawnPerPoll(t *testing.T) {
	var execs atomic.Int32
	clock := newFakeClock()
	b := newConnectedBackend(clock, func(name string, args ...string) (string, error) {
		execs.Add(1)
		return "GENERAL.STATE:100 (connected)", nil
	})

	// Polled every tick while connected, within the refresh interval:
	// no subprocess at all.
	for i := 0; i < 50; i++ {
		st, err := b.Status()
		if err != nil || st != LinkUp {
			t.Fatalf("Status() = %v, %v", st, err)
		}
	}
	if n := execs.Load(); n != 0 {
		t.Fatalf("%d queries spawned inside the refresh interval, want 0", n)
	}

	// Once the interval elapses, a burst of polls spawns exactly one
	// background query and keeps returning the cached state.
	clock.advance(statusRefreshInterval)
	for i := 0; i < 50; i++ {
		if st, _ := b.Status(); st != LinkUp {
			t.Fatalf("Status() = %v during refresh, want %v", st, LinkUp)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for execs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("refresh query never ran")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	if n := execs.Load(); n != 1 {
		t.Errorf("%d queries spawned for one refresh interval, want 1", n)
	}
}

func TestNmcliStatusNeverBlocksOnSlowQuery(t *testing.T) {
	release := make(chan struct{})
	clock := newFakeClock()
	b := newConnectedBackend(clock, func(name string, args ...string) (string, error) {
		<-release
		return "GENERAL.STATE:100 (connected)", nil
	})
	defer close(release)

	clock.advance(statusRefreshInterval)

	// The query hangs; every poll must still return immediately.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Status()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Status() blocked on the nmcli query")
	}
}

func TestNmcliStatusDetectsLinkLoss(t *testing.T) {
	clock := newFakeClock()
	b := newConnectedBackend(clock, func(name string, args ...string) (string, error) {
		if args[0] == "-t" {
			return "GENERAL.STATE:30 (disconnected)", nil
		}
		return "", nil
	})

	clock.advance(statusRefreshInterval)
	waitStatus(t, b, LinkFailed)
}

func TestNmcliStartConnectReturnsImmediately(t *testing.T) {
	started := make(chan string, 1)
	release := make(chan struct{})
	clock := newFakeClock()
	b := NewNmcliBackend("wlan0")
	b.now = clock.now
	b.run = func(name string, args ...string) (string, error) {
		started <- strings.Join(args, " ")
		<-release
		return "", nil
	}

	if err := b.StartConnect("HomeNet", "hunter22"); err != nil {
		t.Fatalf("StartConnect() error = %v", err)
	}
	if st, _ := b.Status(); st != LinkConnecting {
		t.Errorf("Status() = %v during attempt, want %v", st, LinkConnecting)
	}

	cmd := <-started
	if !strings.Contains(cmd, "connect HomeNet") || !strings.Contains(cmd, "password hunter22") {
		t.Errorf("unexpected nmcli invocation %q", cmd)
	}
	close(release)
	waitStatus(t, b, LinkUp)
}
