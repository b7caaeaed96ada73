package tachometer

import "sync"

// History keeps the most recent reports.
type History struct {
	sync.RWMutex
	reports []Report
	size    int
}

// NewHistory creates a history holding up to size reports.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{size: size, reports: make([]Report, 0, size)}
}

// Publish appends r and drops the oldest report if the history is full.
func (h *History) Publish(r Report) {
	h.Lock()
	defer h.Unlock()

	if len(h.reports) == h.size {
		copy(h.reports, h.reports[1:])
		h.reports = h.reports[:h.size-1]
	}
	h.reports = append(h.reports, r)
}

// Latest returns the last report, ok is false if there is none yet.
func (h *History) Latest() (r Report, ok bool) {
	h.RLock()
	defer h.RUnlock()

	if len(h.reports) == 0 {
		return Report{}, false
	}
	return h.reports[len(h.reports)-1], true
}

// Reports returns a copy of the history, oldest first.
func (h *History) Reports() []Report {
	h.RLock()
	defer h.RUnlock()

	out := make([]Report, len(h.reports))
	copy(out, h.reports)
	return out
}
