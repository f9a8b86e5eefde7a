package urlsync

import "sync"

// History is an in-memory Target that keeps every replaced query string.
type History struct {
	mu      sync.Mutex
	entries []string
}

// NewHistory creates a history whose current entry is initial.
func NewHistory(initial string) *History {
	return &History{entries: []string{initial}}
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

func (h *History) Replace(query string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, query)
	return nil
}

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
