package cache

import (
	"context"
	"sync"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/validator"
)

const sweepInterval = time.Minute

// MemoryCache keeps reports in process. When MaxEntries is reached the report
// closest to expiry makes room for the new one.
type MemoryCache struct {
	mu       sync.Mutex
	reports  map[string]memoryEntry
	settings Settings
	now      func() time.Time

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	report   *validator.Report
	deadline time.Time // zero when the report never expires
}

func (e memoryEntry) live(now time.Time) bool {
	return e.deadline.IsZero() || now.Before(e.deadline)
}

// NewMemoryCache creates an empty cache and starts its sweeper. Close stops it.
func NewMemoryCache(settings Settings) *MemoryCache {
	m := &MemoryCache{
		reports:  make(map[string]memoryEntry),
		settings: settings,
		now:      time.Now,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Get returns a copy of the live report stored under key
func (m *MemoryCache) Get(ctx context.Context, key string) (*validator.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.reports[key]
	if !ok {
		return nil, ErrMiss
	}
	if !entry.live(m.now()) {
		delete(m.reports, key)
		return nil, ErrMiss
	}
	return entry.report.Clone(), nil
}

// Put stores a copy of report
func (m *MemoryCache) Put(ctx context.Context, key string, report *validator.Report, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := m.now()
	entry := memoryEntry{report: report.Clone()}
	if ttl = m.settings.ttlOrDefault(ttl); ttl > 0 {
		entry.deadline = now.Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, replacing := m.reports[key]; !replacing && m.full() {
		m.sweep(now)
		if m.full() {
			m.evictOne()
		}
	}
	m.reports[key] = entry
	return nil
}

// Purge drops every report
func (m *MemoryCache) Purge(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.reports)
	m.reports = make(map[string]memoryEntry)
	return n, nil
}

// Len returns the number of stored reports, expired ones included until swept
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// Close stops the sweeper. It is safe to call more than once.
func (m *MemoryCache) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.stopped
	})
	return nil
}

func (m *MemoryCache) full() bool {
	return m.settings.MaxEntries > 0 && len(m.reports) >= m.settings.MaxEntries
}

// sweep removes expired reports. The caller holds mu.
func (m *MemoryCache) sweep(now time.Time) int {
	removed := 0
	for key, entry := range m.reports {
		if !entry.live(now) {
			delete(m.reports, key)
			removed++
		}
	}
	return removed
}

// evictOne removes the report with the earliest deadline. Reports that never
// expire go last. The caller holds mu.
func (m *MemoryCache) evictOne() {
	var victim string
	var earliest time.Time
	found := false
	for key, entry := range m.reports {
		if !found || earlier(entry.deadline, earliest) {
			victim, earliest, found = key, entry.deadline, true
		}
	}
	if found {
		delete(m.reports, victim)
	}
}

// earlier orders deadlines with the zero deadline treated as infinitely late
func earlier(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	default:
		return a.Before(b)
	}
}

func (m *MemoryCache) sweepLoop() {
	defer close(m.stopped)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.sweep(m.now())
			m.mu.Unlock()
		}
	}
}
