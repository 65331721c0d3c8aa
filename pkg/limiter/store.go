package limiter

import (
	"sync"
	"time"
)

type record struct {
	count     int64
	resetTime time.Time
}

// Store holds fixed-window counters keyed by identity.
//
// It is safe for concurrent use: the read-compare-write cycle inside
// Increment runs as one critical section, so two simultaneous requests for
// the same key can never both observe count=N and both write N+1.
//
// A key with no requests never appears in the store. Expired records are
// dropped lazily on Get and in bulk by Cleanup; run a Janitor to bound memory
// for keys that stop sending traffic.
type Store struct {
	mu      sync.Mutex
	clock   Clock
	records map[string]*record
}

// NewStore constructs an empty Store. A nil clock defaults to the system
// clock.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = SystemClock()
	}
	return &Store{
		clock:   clock,
		records: make(map[string]*record),
	}
}

// Increment registers one hit for key and returns the updated count together
// with the end of the current window. A missing or expired record is replaced
// by a fresh one with count=1 and resetTime=now+window.
func (s *Store) Increment(key string, window time.Duration) (int64, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	rec, ok := s.records[key]
	if !ok || !now.Before(rec.resetTime) {
		rec = &record{count: 1, resetTime: now.Add(window)}
		s.records[key] = rec
		return rec.count, rec.resetTime
	}
	rec.count++
	return rec.count, rec.resetTime
}

// Decrement undoes one hit for key, used when a request is configured not to
// count (skip-successful / skip-failed). Expired or absent records are left
// alone.
func (s *Store) Decrement(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || !s.clock.Now().Before(rec.resetTime) {
		return
	}
	if rec.count > 0 {
		rec.count--
	}
}

// Get returns the live count and window end for key. An expired record is
// deleted and reported as absent.
func (s *Store) Get(key string) (int64, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return 0, time.Time{}, false
	}
	if !s.clock.Now().Before(rec.resetTime) {
		delete(s.records, key)
		return 0, time.Time{}, false
	}
	return rec.count, rec.resetTime, true
}

// Reset unconditionally deletes the record for key. Used for administrative
// resets and test isolation.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// Cleanup sweeps every record and deletes those whose window has passed.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for key, rec := range s.records {
		if !now.Before(rec.resetTime) {
			delete(s.records, key)
		}
	}
}

// Len reports the number of live records, expired ones included until the
// next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Janitor runs Store.Cleanup on a fixed interval. Unlike a free-running
// time.AfterFunc chain it has an explicit lifecycle: the host application
// starts it, and Stop both halts the ticker and waits for an in-flight sweep
// to finish, so shutdown and tests are deterministic.
type Janitor struct {
	store    *Store
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewJanitor constructs a Janitor sweeping store every interval. A
// non-positive interval defaults to 5 minutes.
func NewJanitor(store *Store, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{store: store, interval: interval}
}

// Start launches the sweep loop. Starting an already running Janitor is a
// no-op.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stop != nil {
		return
	}
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	go j.run(j.stop, j.done)
}

// Stop halts the sweep loop and blocks until it has exited. Stopping a
// Janitor that was never started is a no-op.
func (j *Janitor) Stop() {
	j.mu.Lock()
	stop, done := j.stop, j.done
	j.stop, j.done = nil, nil
	j.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (j *Janitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.store.Cleanup()
		case <-stop:
			return
		}
	}
}
