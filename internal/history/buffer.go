// Package history keeps a bounded, most-recent log of processed sweeps for
// export and replay.
package history

import (
	"github.com/banshee-data/sweepview/internal/sensor"
)

// DefaultCapacity is the history bound used when a session does not set one.
const DefaultCapacity = 500

// Record is one processed sweep as it will be exported. Info is nil when the
// sweep arrived without sensor metadata.
type Record struct {
	ServiceType  string
	Sweep        sensor.Sweep
	SensorConfig sensor.Config
	ClutterFile  string
	Info         *sensor.Info
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Sweep = r.Sweep.Clone()
	if r.Info != nil {
		info := *r.Info
		out.Info = &info
	}
	return out
}

// Buffer is a fixed-capacity FIFO of Records. Appending to a full buffer
// evicts the oldest record. Records are copied on the way in and out, so
// callers may keep mutating their sweep buffers after Append.
type Buffer struct {
	records []Record
	head    int // index of the oldest record
	size    int
}

// NewBuffer returns a Buffer holding at most capacity records. A capacity
// of zero or less keeps nothing.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{records: make([]Record, capacity)}
}

// Append adds a copy of r, evicting the oldest record when full.
func (b *Buffer) Append(r Record) {
	capacity := len(b.records)
	if capacity == 0 {
		return
	}
	r = r.Clone()
	if b.size < capacity {
		b.records[(b.head+b.size)%capacity] = r
		b.size++
		return
	}
	b.records[b.head] = r
	b.head = (b.head + 1) % capacity
}

// Len returns the number of records held.
func (b *Buffer) Len() int { return b.size }

// Cap returns the configured bound.
func (b *Buffer) Cap() int { return len(b.records) }

// Records returns copies of the held records, oldest first.
func (b *Buffer) Records() []Record {
	out := make([]Record, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.records[(b.head+i)%len(b.records)].Clone())
	}
	return out
}

// Reset drops every record and keeps the capacity.
func (b *Buffer) Reset() {
	for i := range b.records {
		b.records[i] = Record{}
	}
	b.head = 0
	b.size = 0
}
