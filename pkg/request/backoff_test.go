package request

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHostBackoff_ExponentialDelay(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		baseDelay time.Duration
		maxDelay  time.Duration
		wantMinMs int64
		wantMaxMs int64
	}{
		{"First failure", 1, 1 * time.Second, 60 * time.Second, 900, 1200},
		{"Second failure", 2, 1 * time.Second, 60 * time.Second, 1900, 2400},
		{"Third failure", 3, 1 * time.Second, 60 * time.Second, 3900, 4800},
		{"Max cap hit", 10, 1 * time.Second, 60 * time.Second, 59900, 66000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewHostBackoff(tt.baseDelay, tt.maxDelay)
			for i := 0; i < tt.failures; i++ {
				b.RecordFailure("node.example:7070")
			}

			fc, nextAllowed := b.State("node.example:7070")
			if fc != tt.failures {
				t.Errorf("failureCount = %d, want %d", fc, tt.failures)
			}

			delayMs := time.Until(nextAllowed).Milliseconds()
			if delayMs < tt.wantMinMs || delayMs > tt.wantMaxMs {
				t.Errorf("delay = %dms, want between %dms and %dms", delayMs, tt.wantMinMs, tt.wantMaxMs)
			}
		})
	}
}

func TestHostBackoff_GradualRecovery(t *testing.T) {
	b := NewHostBackoff(1*time.Second, 60*time.Second)

	b.RecordFailure("host")
	b.RecordFailure("host")
	b.RecordFailure("host")

	if fc, _ := b.State("host"); fc != 3 {
		t.Errorf("after 3 failures, count = %d, want 3", fc)
	}

	b.RecordSuccess("host")
	if fc, _ := b.State("host"); fc != 2 {
		t.Errorf("after 1 success, count = %d, want 2", fc)
	}

	b.RecordSuccess("host")
	b.RecordSuccess("host")
	fc, next := b.State("host")
	if fc != 0 || !next.IsZero() {
		t.Errorf("after full recovery, count = %d next = %v, want 0 and zero time", fc, next)
	}
}

func TestHostBackoff_IsolatedHosts(t *testing.T) {
	b := NewHostBackoff(1*time.Second, 60*time.Second)

	b.RecordFailure("localhost:7070")
	b.RecordFailure("localhost:7070")

	fc1, _ := b.State("localhost:7070")
	fc2, _ := b.State("node.example:443")
	if fc1 != 2 {
		t.Errorf("local failures = %d, want 2", fc1)
	}
	if fc2 != 0 {
		t.Errorf("remote failures = %d, want 0 (isolated)", fc2)
	}
}

func TestHostBackoff_WaitHonorsContext(t *testing.T) {
	b := NewHostBackoff(time.Minute, time.Minute)
	b.RecordFailure("host")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.Wait(ctx, "host"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want deadline exceeded", err)
	}
	if err := b.Wait(context.Background(), "other"); err != nil {
		t.Errorf("Wait() on clean host = %v", err)
	}
}
