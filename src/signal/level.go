package signal

import "math"

const levelWindow = 60

type levelBucket struct {
	min, max float64
}

func emptyBucket() levelBucket {
	return levelBucket{min: math.MaxFloat64, max: -math.MaxFloat64}
}

// LevelRange tracks min/max energy over a rolling minute using one-second
// buckets.
type LevelRange struct {
	buckets [levelWindow]levelBucket
	current int64 // unix second of the newest bucket, -1 when empty
}

// NewLevelRange creates an empty range.
func NewLevelRange() LevelRange {
	r := LevelRange{current: -1}
	for i := range r.buckets {
		r.buckets[i] = emptyBucket()
	}
	return r
}

// Observe records value at unix second sec. Values older than the newest
// bucket are folded into it.
func (r *LevelRange) Observe(value float64, sec int64) {
	if r.current >= 0 && sec > r.current {
		gap := sec - r.current
		if gap >= levelWindow {
			for i := range r.buckets {
				r.buckets[i] = emptyBucket()
			}
		} else {
			for s := r.current + 1; s < sec; s++ {
				r.buckets[s%levelWindow] = emptyBucket()
			}
		}
	}

	if r.current < 0 || sec > r.current {
		r.buckets[sec%levelWindow] = levelBucket{min: value, max: value}
		r.current = sec
		return
	}

	b := &r.buckets[r.current%levelWindow]
	b.min = min(b.min, value)
	b.max = max(b.max, value)
}

// Min is the smallest value in the window, or 0 if empty.
func (r *LevelRange) Min() float64 {
	result := math.MaxFloat64
	for _, b := range r.buckets {
		result = min(result, b.min)
	}
	if result == math.MaxFloat64 {
		return 0
	}
	return result
}

// Max is the largest value in the window, or 0 if empty.
func (r *LevelRange) Max() float64 {
	result := -math.MaxFloat64
	for _, b := range r.buckets {
		result = max(result, b.max)
	}
	if result == -math.MaxFloat64 {
		return 0
	}
	return result
}
