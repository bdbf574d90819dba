// Package events keeps the bounded in-memory security event log that feeds
// the dashboard and the traffic analyzer.
package events

import (
	"sync"
	"time"

	"github.com/argussec/argus/internal/metrics"
	"github.com/argussec/argus/internal/models"
)

// Log is an append-only ring buffer of security events. Appends never block
// waiting for space; once capacity is reached the oldest entry is dropped.
type Log struct {
	mu       sync.RWMutex
	entries  []models.SecurityEvent
	start    int // index of the oldest entry
	size     int
	capacity int
}

// NewLog returns a log bounded to the given capacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Log{
		entries:  make([]models.SecurityEvent, capacity),
		capacity: capacity,
	}
}

// Append records one event, evicting the oldest entry when full.
func (l *Log) Append(event models.SecurityEvent) {
	l.mu.Lock()
	if l.size < l.capacity {
		l.entries[(l.start+l.size)%l.capacity] = event
		l.size++
	} else {
		l.entries[l.start] = event
		l.start = (l.start + 1) % l.capacity
	}
	l.mu.Unlock()
	metrics.IncEvent(event.Level.String())
}

// MarkMitigated flips the mitigated flag and records the actions taken for
// the event with the given id, newest first.
func (l *Log) MarkMitigated(id string, mitigated bool, actions []models.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := l.size - 1; i >= 0; i-- {
		idx := (l.start + i) % l.capacity
		if l.entries[idx].ID == id {
			l.entries[idx].Mitigated = mitigated
			l.entries[idx].Actions = actions
			return
		}
	}
}

// Recent returns up to n events, newest first.
func (l *Log) Recent(n int) []models.SecurityEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > l.size {
		n = l.size
	}
	out := make([]models.SecurityEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.start + l.size - 1 - i) % l.capacity
		out = append(out, l.entries[idx])
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// CountsByLevel aggregates retained events per threat level.
func (l *Log) CountsByLevel() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, 4)
	for i := 0; i < l.size; i++ {
		e := l.entries[(l.start+i)%l.capacity]
		out[e.Level.String()]++
	}
	return out
}

// ActiveThreats counts High/Critical events observed within the window.
func (l *Log) ActiveThreats(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for i := 0; i < l.size; i++ {
		e := l.entries[(l.start+i)%l.capacity]
		if e.Level >= models.ThreatHigh && e.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// Since returns all retained events with a timestamp after cutoff,
// oldest first. Used by the traffic analyzer.
func (l *Log) Since(cutoff time.Time) []models.SecurityEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.SecurityEvent
	for i := 0; i < l.size; i++ {
		e := l.entries[(l.start+i)%l.capacity]
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
