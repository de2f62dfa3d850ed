package api

import (
	"net/http"

	"nodedesk/pkg/core"
	"nodedesk/pkg/tracker"
)

// NodeStatusResponse reports the last node reachability check.
type NodeStatusResponse struct {
	Checked bool                           `json:"checked"`
	Status  core.NodeStatus                `json:"status"`
	Calls   map[string]tracker.MethodStats `json:"calls,omitempty"`
}

// NodeHandler exposes the node watch results.
type NodeHandler struct {
	status func() (core.NodeStatus, bool)
	calls  func() map[string]tracker.MethodStats
}

// NewNodeHandler creates a new NodeHandler. calls may be nil.
func NewNodeHandler(status func() (core.NodeStatus, bool), calls func() map[string]tracker.MethodStats) *NodeHandler {
	return &NodeHandler{status: status, calls: calls}
}

// HandleStatus returns the last node status.
func (h *NodeHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := h.status()
	resp := NodeStatusResponse{Checked: ok, Status: st}
	if h.calls != nil {
		resp.Calls = h.calls()
	}
	writeJSON(w, http.StatusOK, resp)
}
