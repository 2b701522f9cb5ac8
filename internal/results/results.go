// Package results holds the fixed-size score buffers written by workers.
//
// A buffer has one int32 slot per work item. Slots are written without
// locking: the executor hands every worker a disjoint range, so each slot has
// exactly one writer for the lifetime of a job.
package results

// Sink is an indexable, fixed-length score buffer.
type Sink interface {
	// Store writes score into slot i.
	Store(i int, score int32)
	// Load reads slot i.
	Load(i int) int32
	// Len is the number of slots; it never changes after allocation.
	Len() int
}

// Snapshot copies every slot of s into a new slice.
func Snapshot(s Sink) []int32 {
	out := make([]int32, s.Len())
	for i := range out {
		out[i] = s.Load(i)
	}
	return out
}

// Memory is an in-process buffer shared by goroutine workers.
type Memory struct {
	slots []int32
}

// NewMemory allocates a buffer of n slots.
func NewMemory(n int) *Memory {
	return &Memory{slots: make([]int32, n)}
}

// Store implements Sink.
func (m *Memory) Store(i int, score int32) { m.slots[i] = score }

// Load implements Sink.
func (m *Memory) Load(i int) int32 { return m.slots[i] }

// Len implements Sink.
func (m *Memory) Len() int { return len(m.slots) }
