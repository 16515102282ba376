package model

import "time"

const defaultProgressCap = 60

// ProgressPoint is a single timestamped sample stored in the ring buffer.
type ProgressPoint struct {
	Timestamp     time.Time
	RowsPerSec    float64
	DocsPerSec    float64
	DocumentCount float64
}

// ProgressHistory is a fixed-size ring buffer of ProgressPoints.
// When the buffer is full, new pushes overwrite the oldest entry.
type ProgressHistory struct {
	buf  []ProgressPoint
	head int // index of the next write position
	size int // number of valid entries
}

// NewProgressHistory creates a ProgressHistory with the given capacity.
// If capacity <= 0, defaultProgressCap (60) is used.
func NewProgressHistory(capacity int) *ProgressHistory {
	if capacity <= 0 {
		capacity = defaultProgressCap
	}
	return &ProgressHistory{
		buf: make([]ProgressPoint, capacity),
	}
}

// Push appends a new point to the history, overwriting the oldest if full.
func (h *ProgressHistory) Push(p ProgressPoint) {
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Len returns the number of valid entries in the history.
func (h *ProgressHistory) Len() int {
	return h.size
}

// Clear resets the history to empty.
func (h *ProgressHistory) Clear() {
	h.head = 0
	h.size = 0
}

// Values returns a slice of float64 for the named field in chronological order
// (oldest first). Valid field names: "rowsPerSec", "docsPerSec",
// "documentCount".
func (h *ProgressHistory) Values(field string) []float64 {
	out := make([]float64, h.size)
	// oldest entry sits at (head - size + cap) % cap
	start := (h.head - h.size + len(h.buf)) % len(h.buf)
	for i := 0; i < h.size; i++ {
		p := h.buf[(start+i)%len(h.buf)]
		switch field {
		case "rowsPerSec":
			out[i] = p.RowsPerSec
		case "docsPerSec":
			out[i] = p.DocsPerSec
		case "documentCount":
			out[i] = p.DocumentCount
		}
	}
	return out
}
