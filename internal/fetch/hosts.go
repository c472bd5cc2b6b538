package fetch

import "sync"

// HostPicker selects which upstream base URL the next request goes to.
// Adapters take a picker from their caller instead of rotating through a
// package-level counter, so host selection stays testable and scoped.
type HostPicker interface {
	Pick() string
}

// Single always returns the same host.
type Single string

func (s Single) Pick() string { return string(s) }

// RoundRobin cycles through mirror hosts. Safe for concurrent use; the
// counter belongs to this value, never to the package.
type RoundRobin struct {
	mu    sync.Mutex
	hosts []string
	next  int
}

func NewRoundRobin(hosts ...string) *RoundRobin {
	return &RoundRobin{hosts: hosts}
}

func (r *RoundRobin) Pick() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hosts) == 0 {
		return ""
	}
	host := r.hosts[r.next%len(r.hosts)]
	r.next++
	return host
}
