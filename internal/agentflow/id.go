package agentflow

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a random ID with the given prefix.
func GenerateID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// NodeIDs hands out node identifiers of the form "<kind>-<unix millis>".
// Identifiers are strictly increasing for the lifetime of the allocator so
// two drops inside the same millisecond, or a drop right after loading a
// workflow with newer ids, never reuse an identifier.
type NodeIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewNodeIDs creates an allocator; a nil clock means time.Now.
func NewNodeIDs(now func() time.Time) *NodeIDs {
	if now == nil {
		now = time.Now
	}
	return &NodeIDs{now: now}
}

// Next allocates a fresh id for an agent of the given kind.
func (n *NodeIDs) Next(kind AgentKind) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return string(kind) + "-" + strconv.FormatInt(ms, 10)
}

// Observe records an id that entered the canvas from elsewhere (a load) so
// later allocations stay ahead of it. Ids without a numeric suffix are
// ignored.
func (n *NodeIDs) Observe(id string) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return
	}
	ms, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil {
		return
	}
	n.mu.Lock()
	if ms > n.last {
		n.last = ms
	}
	n.mu.Unlock()
}
