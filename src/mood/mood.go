// Package mood labels the orb's warmth with a small set of discrete moods.
//
// Labels change only when warmth crosses a rise or fall threshold, so a
// value hovering near a boundary does not flicker between two moods.
package mood

import "fmt"

// Mood is a discrete warmth label, ordered from coolest to warmest.
type Mood int

const (
	Wistful Mood = iota
	Serene
	Glowing
	Radiant
)

var names = [...]string{"wistful", "serene", "glowing", "radiant"}

func (m Mood) String() string {
	if m < Wistful || m > Radiant {
		return fmt.Sprintf("mood(%d)", int(m))
	}
	return names[m]
}

// All returns every mood in order.
func All() []Mood {
	return []Mood{Wistful, Serene, Glowing, Radiant}
}

// Thresholds configure a Classifier. Step i (1-based) is entered when warmth
// reaches the i-th rise threshold and left when it drops below the i-th fall
// threshold. Intermediate steps are interpolated between Start and End.
type Thresholds struct {
	RiseStart, RiseEnd float64
	FallStart, FallEnd float64
}

// DefaultThresholds keep a 0.05 dead band at every boundary.
var DefaultThresholds = Thresholds{
	RiseStart: 0.30, RiseEnd: 0.80,
	FallStart: 0.25, FallEnd: 0.75,
}

// Classifier tracks the current mood.
type Classifier struct {
	Current Mood

	steps int
	th    Thresholds
}

// NewClassifier starts at the mood warmth implies with no history.
func NewClassifier(th Thresholds, warmth float64) *Classifier {
	c := &Classifier{steps: int(Radiant), th: th}
	c.Current = Mood(crossed(warmth, c.steps, th.RiseStart, th.RiseEnd))
	return c
}

// Update folds in a new warmth and reports whether the mood changed.
func (c *Classifier) Update(warmth float64) (Mood, bool) {
	rise := crossed(warmth, c.steps, c.th.RiseStart, c.th.RiseEnd)
	fall := crossed(warmth, c.steps, c.th.FallStart, c.th.FallEnd)

	prev := c.Current
	switch {
	case int(c.Current) > fall:
		c.Current = Mood(fall)
	case int(c.Current) < rise:
		c.Current = Mood(rise)
	}
	return c.Current, c.Current != prev
}

// crossed counts consecutive thresholds at or below value.
func crossed(value float64, steps int, start, end float64) int {
	for i := 1; i <= steps; i++ {
		if value < threshold(start, end, i, steps) {
			return i - 1
		}
	}
	return steps
}

// threshold returns the threshold for step i out of n.
func threshold(start, end float64, i, n int) float64 {
	if n <= 1 {
		return start
	}
	return start + (end-start)*float64(i-1)/float64(n-1)
}
