package l3wave

// Ring holds the three wavefield buffers and the role each one currently
// plays. Rotating only moves the role indices; no cell is copied.
type Ring struct {
	bufs [3][]float64
	prev int
	cur  int
	next int
}

// NewRing allocates three zeroed buffers of n cells each.
func NewRing(n int) *Ring {
	r := &Ring{prev: 0, cur: 1, next: 2}
	for i := range r.bufs {
		r.bufs[i] = make([]float64, n)
	}
	return r
}

// Rotate advances one time step: previous takes the old current, current
// takes the old next, and the old previous is recycled as next.
func (r *Ring) Rotate() {
	r.prev, r.cur, r.next = r.cur, r.next, r.prev
}

func (r *Ring) Previous() []float64 { return r.bufs[r.prev] }
func (r *Ring) Current() []float64  { return r.bufs[r.cur] }
func (r *Ring) Next() []float64     { return r.bufs[r.next] }

// Frame binds the current roles for one kernel call.
func (r *Ring) Frame() Frame {
	return Frame{Previous: r.Previous(), Current: r.Current(), Next: r.Next()}
}
