package signal

import (
	"sync"
	"time"

	"github.com/ryansname/visimos/src/affect"
)

// Mailbox hands the freshest sample from a producer goroutine to the
// engine. Older unread samples are overwritten.
type Mailbox struct {
	mu     sync.Mutex
	sample affect.Sample
	fresh  bool
	total  uint64
	levels LevelRange
	now    func() time.Time
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{levels: NewLevelRange(), now: time.Now}
}

// Put stores s, replacing any unread sample.
func (m *Mailbox) Put(s affect.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sample = s
	m.fresh = true
	m.total++
	if s.Valid() {
		m.levels.Observe(s.Energy, m.now().Unix())
	}
}

// Poll returns the newest sample once.
func (m *Mailbox) Poll() (affect.Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fresh {
		return affect.Sample{}, false
	}
	m.fresh = false
	return m.sample, true
}

// Latest returns the newest sample without consuming it.
func (m *Mailbox) Latest() (affect.Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sample, m.total > 0
}

// Range reports the rolling minute's energy bounds.
func (m *Mailbox) Range() (lo, hi float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels.Min(), m.levels.Max()
}

// Received is the number of samples ever stored.
func (m *Mailbox) Received() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
