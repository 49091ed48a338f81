package app

import (
	"sync"
	"time"

	"chess-quiz-service/internal/domain"
)

// LeaderboardFeed fans leaderboard snapshots out to live subscribers.
type LeaderboardFeed struct {
	now         func() time.Time
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func newLeaderboardFeed(now func() time.Time) *LeaderboardFeed {
	return &LeaderboardFeed{
		now:         now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

func (f *LeaderboardFeed) subscribe(initial []domain.LeaderboardEntry) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	ch <- f.snapshot(initial)
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *LeaderboardFeed) empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}

func (f *LeaderboardFeed) publish(entries []domain.LeaderboardEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lb := f.snapshot(entries)
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			// Slow subscriber: drop its oldest snapshot so publish never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (f *LeaderboardFeed) snapshot(entries []domain.LeaderboardEntry) domain.Leaderboard {
	copied := make([]domain.LeaderboardEntry, len(entries))
	copy(copied, entries)
	return domain.Leaderboard{Entries: copied, UpdatedAt: f.now()}
}
