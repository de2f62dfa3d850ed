package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"nodedesk/pkg/settings"
)

// NodeCaller is the node client surface NodeWatchJob needs.
type NodeCaller interface {
	Call(ctx context.Context, method string, out any, params ...any) error
	BaseURL() string
}

// NodeStatus is the outcome of the last reachability check.
type NodeStatus struct {
	Reachable bool      `json:"reachable"`
	BaseURL   string    `json:"baseURL"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// NodeWatchJob periodically checks that the configured node answers.
type NodeWatchJob struct {
	*TimeJob
	node    NodeCaller
	method  string
	timeout time.Duration
	log     *slog.Logger
	status  atomic.Pointer[NodeStatus]
}

// NewNodeWatchJob checks node every interval by calling method.
func NewNodeWatchJob(node NodeCaller, method string, interval, timeout time.Duration, logger *slog.Logger) *NodeWatchJob {
	if logger == nil {
		logger = slog.Default()
	}
	j := &NodeWatchJob{
		node:    node,
		method:  method,
		timeout: timeout,
		log:     logger,
	}
	j.TimeJob = NewTimeJob("NodeWatch", interval, j.check)
	return j
}

// Status returns the last check result. ok is false before the first check.
func (j *NodeWatchJob) Status() (st NodeStatus, ok bool) {
	p := j.status.Load()
	if p == nil {
		return NodeStatus{}, false
	}
	return *p, true
}

// Watch rechecks whenever the resolved node changes.
func (j *NodeWatchJob) Watch(s *Store) (cancel func()) {
	last := s.Connection()
	return s.Subscribe(func(settings.State) {
		next := s.Connection()
		if next != last {
			last = next
			j.Reset()
		}
	})
}

func (j *NodeWatchJob) check(ctx context.Context) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	st := NodeStatus{BaseURL: j.node.BaseURL(), CheckedAt: time.Now()}
	if err := j.node.Call(ctx, j.method, nil); err != nil {
		st.Error = err.Error()
	} else {
		st.Reachable = true
	}

	prev := j.status.Swap(&st)
	switch {
	case prev == nil || prev.Reachable != st.Reachable || prev.BaseURL != st.BaseURL:
		if st.Reachable {
			j.log.Info("NodeWatch: node reachable", "url", st.BaseURL)
		} else {
			j.log.Warn("NodeWatch: node unreachable", "url", st.BaseURL, "error", st.Error)
		}
	default:
		j.log.Debug("NodeWatch: status unchanged", "url", st.BaseURL, "reachable", st.Reachable)
	}
}
