// Package tracker counts node RPC outcomes per method.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker tracks call statistics per RPC method.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*MethodStats
}

// MethodStats holds counters for one method.
// Fields are accessed atomically.
type MethodStats struct {
	Success   int64 `json:"success"`
	Failures  int64 `json:"failures"`
	RPCErrors int64 `json:"rpcErrors"`
	// LastLatencyMS is the duration of the last successful call.
	LastLatencyMS int64 `json:"lastLatencyMs"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*MethodStats),
	}
}

// getStats returns the stats object for a method, creating it if needed.
func (t *Tracker) getStats(method string) *MethodStats {
	t.mu.RLock()
	s, ok := t.stats[method]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[method]; ok {
		return s
	}
	s = &MethodStats{}
	t.stats[method] = s
	return s
}

// TrackSuccess counts a call the node answered with a result.
func (t *Tracker) TrackSuccess(method string, latency time.Duration) {
	s := t.getStats(method)
	atomic.AddInt64(&s.Success, 1)
	atomic.StoreInt64(&s.LastLatencyMS, latency.Milliseconds())
}

// TrackFailure counts a call that never got a usable response.
func (t *Tracker) TrackFailure(method string) {
	atomic.AddInt64(&t.getStats(method).Failures, 1)
}

// TrackRPCError counts a call the node answered with an error object.
func (t *Tracker) TrackRPCError(method string) {
	atomic.AddInt64(&t.getStats(method).RPCErrors, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]MethodStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]MethodStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = MethodStats{
			Success:       atomic.LoadInt64(&v.Success),
			Failures:      atomic.LoadInt64(&v.Failures),
			RPCErrors:     atomic.LoadInt64(&v.RPCErrors),
			LastLatencyMS: atomic.LoadInt64(&v.LastLatencyMS),
		}
	}
	return result
}
