package monitoring

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/rtm/internal/timeutil"
)

// Progress reports a long countdown loop through Logf at a fixed stride.
type Progress struct {
	label string
	total int
	every int
	clock timeutil.Clock
	start time.Time
	seen  int
}

// NewProgress creates a reporter for total units, logging every `every`
// units. every <= 0 logs only at completion.
func NewProgress(label string, total, every int, clock timeutil.Clock) *Progress {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Progress{label: label, total: total, every: every, clock: clock, start: clock.Now()}
}

// Tick records one completed unit.
func (p *Progress) Tick() {
	p.seen++
	if p.every <= 0 || p.seen%p.every != 0 || p.seen == p.total {
		return
	}
	elapsed := p.clock.Since(p.start)
	var eta time.Duration
	if p.seen > 0 {
		eta = time.Duration(float64(elapsed) / float64(p.seen) * float64(p.total-p.seen))
	}
	Logf("%s: %s/%s steps, elapsed %s, eta %s", p.label,
		humanize.Comma(int64(p.seen)), humanize.Comma(int64(p.total)),
		elapsed.Round(time.Millisecond), eta.Round(time.Second))
}

// Done logs the final count and returns the elapsed time.
func (p *Progress) Done() time.Duration {
	elapsed := p.clock.Since(p.start)
	Logf("%s: %s steps in %s", p.label, humanize.Comma(int64(p.seen)), elapsed.Round(time.Millisecond))
	return elapsed
}

// Seen is the number of ticks so far.
func (p *Progress) Seen() int { return p.seen }
