package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestBaseJob_LockUnlock tests the atomic lock behavior.
func TestBaseJob_LockUnlock(t *testing.T) {
	b := NewBaseJob("test")

	if !b.TryLock() {
		t.Fatal("First TryLock should succeed")
	}
	if b.TryLock() {
		t.Error("Second TryLock should fail when already locked")
	}
	b.Unlock()
	if !b.TryLock() {
		t.Error("TryLock should succeed after Unlock")
	}
}

func TestBaseJob_Name(t *testing.T) {
	tests := []struct {
		jobName string
	}{
		{"NodeWatch"},
		{""},
		{"作业"},
	}
	for _, tt := range tests {
		b := NewBaseJob(tt.jobName)
		if got := b.Name(); got != tt.jobName {
			t.Errorf("Name() = %v, want %v", got, tt.jobName)
		}
	}
}

func TestTimeJob_ShouldFire(t *testing.T) {
	var runs int32
	j := NewTimeJob("tick", time.Minute, func(ctx context.Context) { atomic.AddInt32(&runs, 1) })
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !j.ShouldFire(start) {
		t.Fatal("first evaluation should fire")
	}
	j.Run(context.Background(), start)

	tests := []struct {
		name  string
		after time.Duration
		want  bool
	}{
		{"Immediately", 0, false},
		{"BeforeThreshold", 59 * time.Second, false},
		{"AtThreshold", time.Minute, true},
		{"Later", 5 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := j.ShouldFire(start.Add(tt.after)); got != tt.want {
				t.Errorf("ShouldFire(+%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}

	j.Reset()
	if !j.ShouldFire(start) {
		t.Error("Reset job should fire on next tick")
	}
	if atomic.LoadInt32(&runs) != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestTimeJob_NoReentry(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	j := NewTimeJob("slow", 0, func(ctx context.Context) {
		close(started)
		<-release
	})

	done := make(chan struct{})
	go func() {
		j.Run(context.Background(), time.Now())
		close(done)
	}()
	<-started

	if j.ShouldFire(time.Now()) {
		t.Error("running job must not fire again")
	}
	close(release)
	<-done
}

func TestScheduler_FiresAndStops(t *testing.T) {
	var runs int32
	j := NewTimeJob("count", 0, func(ctx context.Context) { atomic.AddInt32(&runs, 1) })

	s := NewScheduler(5*time.Millisecond, discardLogger())
	s.AddJob(j)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runs) < 3 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 3", atomic.LoadInt32(&runs))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type fakeNode struct {
	mu   sync.Mutex
	url  string
	err  error
	hits int
}

func (f *fakeNode) Call(ctx context.Context, method string, out any, params ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits++
	return f.err
}

func (f *fakeNode) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func TestNodeWatchJob_Status(t *testing.T) {
	node := &fakeNode{url: "http://localhost:7070"}
	j := NewNodeWatchJob(node, "dna_epoch", time.Minute, time.Second, discardLogger())

	if _, ok := j.Status(); ok {
		t.Fatal("status reported before first check")
	}

	j.Run(context.Background(), time.Now())
	st, ok := j.Status()
	if !ok || !st.Reachable || st.BaseURL != "http://localhost:7070" {
		t.Errorf("status = %+v, ok=%v; want reachable localhost", st, ok)
	}

	node.mu.Lock()
	node.err = errors.New("connection refused")
	node.mu.Unlock()
	j.Run(context.Background(), time.Now())
	st, _ = j.Status()
	if st.Reachable || st.Error != "connection refused" {
		t.Errorf("status = %+v; want unreachable with error", st)
	}
}

func TestNodeWatchJob_RecheckOnConnectionChange(t *testing.T) {
	s := newTestStore(t, newMemAdapter(), "1.0.0")
	j := NewNodeWatchJob(&fakeNode{}, "dna_epoch", time.Hour, time.Second, discardLogger())
	cancel := j.Watch(s)
	defer cancel()

	now := time.Now()
	j.Run(context.Background(), now)
	if j.ShouldFire(now) {
		t.Fatal("job should wait for its interval")
	}

	// A language change does not move the node.
	if err := s.ChangeLanguage("de"); err != nil {
		t.Fatal(err)
	}
	if j.ShouldFire(now) {
		t.Error("unrelated settings change triggered a recheck")
	}

	s.ToggleUseExternalNode(true)
	if !j.ShouldFire(now) {
		t.Error("connection change should trigger a recheck")
	}
}
