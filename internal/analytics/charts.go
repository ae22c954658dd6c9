package analytics

import "time"

// Charts is the full chart state shown by the renderer. It is a value:
// Apply returns a new Charts and never modifies the receiver's slices, so a
// renderer holding the previous value keeps a consistent view.
type Charts struct {
	Region    RegionSeries
	Posterior PosteriorSeries
	Markov    []Bar
	UpdatedAt time.Time // Analytics timestamp of the last applied payload
	Updates   int       // Number of payloads applied
}

// Apply merges a payload into a new chart state. A payload without
// historical counts is ignored entirely and Apply reports false.
func (c Charts) Apply(p Payload) (Charts, bool) {
	region, ok := Merge(p)
	if !ok {
		return c, false
	}

	next := c
	next.Region = region
	if posterior, ok := MergePosterior(p); ok {
		next.Posterior = posterior
	}
	if p.Markov != nil {
		next.Markov = MarkovBars(*p.Markov)
	}
	if ts := p.Time(); !ts.IsZero() {
		next.UpdatedAt = ts
	}
	next.Updates++

	return next, true
}

// Empty reports whether no payload has been applied yet.
func (c Charts) Empty() bool {
	return c.Updates == 0
}
