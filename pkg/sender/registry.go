package sender

import "sync"

// Availability is the published dispatch state of a worker.
type Availability string

const (
	Available Availability = "available"
	Busy      Availability = "busy"
)

// registry is the shared availability table the dispatcher reads. It is the
// only structure in the pool touched by more than one goroutine; a single
// mutex over the small fixed-size table keeps single-key updates atomic
// without contending on any worker's buffer.
type registry struct {
	mu     sync.Mutex
	states []Availability
}

func newRegistry(size int) *registry {
	states := make([]Availability, size)
	for i := range states {
		states[i] = Available
	}
	return &registry{states: states}
}

// set publishes the state of one worker.
func (r *registry) set(index int, state Availability) {
	r.mu.Lock()
	r.states[index] = state
	r.mu.Unlock()
}

// firstAvailable returns the index of the first worker currently published
// as available.
func (r *registry) firstAvailable() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, state := range r.states {
		if state == Available {
			return i, true
		}
	}
	return 0, false
}
