package pool

// Stats is a snapshot of pool counters
// Created counts first hand-outs of a value, Reused counts hand-outs of a previously released
// value, so Created+Reused equals the number of successful Acquire calls
type Stats struct {
	Created         uint64 `json:"created"`
	Reused          uint64 `json:"reused"`
	Active          int    `json:"active"`
	Capacity        int    `json:"capacity"`
	Exhausted       uint64 `json:"exhausted"`
	InvalidReleases uint64 `json:"invalid_releases"`
}

// Stats returns a snapshot of the pool counters
func (p *Pool[T]) Stats() Stats {
	s := p.stats
	s.Capacity = len(p.slots)
	return s
}

// Acquires returns the number of successful Acquire calls
func (s Stats) Acquires() uint64 {
	return s.Created + s.Reused
}

// Utilization returns the active share of capacity in [0, 1]
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Active) / float64(s.Capacity)
}
