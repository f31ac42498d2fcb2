package policy

import (
	"strings"
	"sync"
)

// HostFailures counts timeout and network failures per host:port. Hosts above
// the threshold are skipped for the rest of the process lifetime.
type HostFailures struct {
	mu        sync.Mutex
	threshold int
	counts    map[string]int
}

// NewHostFailures returns a counter that trips once a host has more than
// threshold failures.
func NewHostFailures(threshold int) *HostFailures {
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	return &HostFailures{
		threshold: threshold,
		counts:    make(map[string]int),
	}
}

// Record increments the counter for key and reports whether the host is now
// considered down.
func (h *HostFailures) Record(key string) bool {
	if key == "" {
		return false
	}
	key = strings.ToLower(key)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[key]++
	return h.counts[key] > h.threshold
}

// Exceeded reports whether key has more failures than the threshold.
func (h *HostFailures) Exceeded(key string) bool {
	if key == "" {
		return false
	}
	key = strings.ToLower(key)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[key] > h.threshold
}

// Count returns the recorded failures for key.
func (h *HostFailures) Count(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[strings.ToLower(key)]
}
