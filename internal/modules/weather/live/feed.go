// Package live keeps the most recent ingested readings in memory for the live view.
// It is not part of the durable store: contents are lost on restart.
package live

import (
	"sync"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
)

// Feed is a fixed-capacity ring buffer. Once full, each Push evicts the oldest reading.
type Feed struct {
	mu    sync.RWMutex
	buf   []types.Reading
	next  int
	count int
}

func NewFeed(capacity int) *Feed {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed{buf: make([]types.Reading, capacity)}
}

func (f *Feed) Capacity() int { return len(f.buf) }

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

func (f *Feed) Push(r types.Reading) {
	f.mu.Lock()
	f.buf[f.next] = r
	f.next = (f.next + 1) % len(f.buf)
	if f.count < len(f.buf) {
		f.count++
	}
	f.mu.Unlock()
}

// Recent returns up to limit readings, newest first. An empty stationID matches all stations;
// limit <= 0 means everything buffered.
func (f *Feed) Recent(stationID string, limit int) []types.Reading {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 || limit > f.count {
		limit = f.count
	}
	out := make([]types.Reading, 0, limit)
	for i := 1; i <= f.count && len(out) < limit; i++ {
		r := f.buf[(f.next-i+len(f.buf))%len(f.buf)]
		if stationID != "" && r.StationID != stationID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Stations lists the distinct station ids currently buffered, in first-seen-newest order.
func (f *Feed) Stations() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for i := 1; i <= f.count; i++ {
		id := f.buf[(f.next-i+len(f.buf))%len(f.buf)].StationID
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
