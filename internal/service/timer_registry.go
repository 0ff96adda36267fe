package service

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var attemptTimersActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "arena",
	Subsystem: "attempts",
	Name:      "timers_active",
	Help:      "Number of armed attempt timers held in memory.",
})

// attemptKey identifies one participant's attempt at one challenge.
type attemptKey struct {
	UserID      string
	ChallengeID string
}

type attemptEntry struct {
	StartedAt time.Time
	Language  string
}

// TimerRegistry holds armed attempt timers in process memory. It is the
// authoritative clock for anti-cheat: the start instant never comes from the
// client. Entries carry the language chosen at arm time and are lost on
// restart; a submission that finds no timer reads as zero elapsed seconds
// and fails the speed gate, so loss is fail-closed.
type TimerRegistry struct {
	mu      sync.Mutex
	entries map[attemptKey]attemptEntry
	now     func() time.Time
}

// NewTimerRegistry constructs an empty registry.
func NewTimerRegistry() *TimerRegistry {
	return NewTimerRegistryWithClock(time.Now)
}

// NewTimerRegistryWithClock constructs a registry that reads the given clock
// instead of time.Now.
func NewTimerRegistryWithClock(clock func() time.Time) *TimerRegistry {
	return &TimerRegistry{
		entries: make(map[attemptKey]attemptEntry),
		now:     clock,
	}
}

// Start arms the timer for the given participant and challenge, overwriting
// any previous entry so re-selecting a language restarts the clock. It
// returns the recorded start instant.
func (r *TimerRegistry) Start(userID, challengeID, language string) time.Time {
	key := attemptKey{UserID: userID, ChallengeID: challengeID}
	startedAt := r.now()

	r.mu.Lock()
	if _, exists := r.entries[key]; !exists {
		attemptTimersActive.Inc()
	}
	r.entries[key] = attemptEntry{StartedAt: startedAt, Language: language}
	r.mu.Unlock()

	return startedAt
}

// Consume atomically removes the timer and returns the elapsed seconds plus
// the language chosen when the attempt was armed. Of two concurrent
// consumers for the same key, exactly one observes ok == true.
func (r *TimerRegistry) Consume(userID, challengeID string) (float64, string, bool) {
	key := attemptKey{UserID: userID, ChallengeID: challengeID}

	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
		attemptTimersActive.Dec()
	}
	r.mu.Unlock()

	if !ok {
		return 0, "", false
	}
	return r.now().Sub(entry.StartedAt).Seconds(), entry.Language, true
}

// Active reports how many timers are currently armed.
func (r *TimerRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
