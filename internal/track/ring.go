package track

// pointRing is a fixed-capacity ring buffer of trajectory points.
// Appends past capacity overwrite the oldest entry, so memory stays
// bounded regardless of how long an identity is tracked.
type pointRing struct {
	buf  []Point
	head int // index of the oldest element
	n    int
}

func newPointRing(capacity int) *pointRing {
	if capacity < 2 {
		capacity = 2
	}
	return &pointRing{buf: make([]Point, capacity)}
}

// Push appends p, evicting the oldest point when full.
func (r *pointRing) Push(p Point) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = p
		r.n++
		return
	}
	r.buf[r.head] = p
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of stored points.
func (r *pointRing) Len() int { return r.n }

// At returns the i-th point, oldest first. Panics when out of range,
// matching slice semantics.
func (r *pointRing) At(i int) Point {
	if i < 0 || i >= r.n {
		panic("track: ring index out of range")
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Last returns the most recent point and whether one exists.
func (r *pointRing) Last() (Point, bool) {
	if r.n == 0 {
		return Point{}, false
	}
	return r.At(r.n - 1), true
}

// Prev returns the second most recent point and whether one exists.
func (r *pointRing) Prev() (Point, bool) {
	if r.n < 2 {
		return Point{}, false
	}
	return r.At(r.n - 2), true
}

// Points returns an oldest-first copy of the buffer contents.
func (r *pointRing) Points() []Point {
	out := make([]Point, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Reset empties the ring without releasing the backing array.
func (r *pointRing) Reset() {
	r.head = 0
	r.n = 0
}
