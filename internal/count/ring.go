package count

import "github.com/banshee-data/footfall.report/internal/track"

// posRing is a fixed-capacity history of one identity's recent
// centroids, kept separately from the tracker's own trajectory. When
// full, a push evicts the oldest sample.
type posRing struct {
	buf  []track.Point
	head int
	n    int
}

func newPosRing(capacity int) *posRing {
	return &posRing{buf: make([]track.Point, capacity)}
}

func (r *posRing) push(p track.Point) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = p
		r.n++
		return
	}
	r.buf[r.head] = p
	r.head = (r.head + 1) % len(r.buf)
}

func (r *posRing) len() int { return r.n }

// at returns the i-th sample, oldest first.
func (r *posRing) at(i int) track.Point {
	return r.buf[(r.head+i)%len(r.buf)]
}

func (r *posRing) first() track.Point { return r.at(0) }
func (r *posRing) last() track.Point  { return r.at(r.n - 1) }
