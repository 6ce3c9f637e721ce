package routing

import "math/rand/v2"

// picker returns a uniform index in [0, n). It must be safe for concurrent use.
type picker func(n int) int

func defaultPicker(n int) int {
	return rand.IntN(n)
}

// emergencyReply picks one canned reply. The set is never empty, see NewDispatcher.
func (d *Dispatcher) emergencyReply() string {
	i := d.random(len(d.replies))
	if i < 0 || i >= len(d.replies) {
		i = 0
	}
	return d.replies[i]
}
