package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"chess-quiz-service/internal/domain"
)

// Store is an in-memory implementation of the account, session and leaderboard repositories.
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]domain.Account
	sessions map[int64]*domain.GameSession
	moves    map[int64][]domain.Move

	nextAccountID int64
	nextSessionID int64
	nextMoveID    int64
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]domain.Account),
		sessions: make(map[int64]*domain.GameSession),
		moves:    make(map[int64][]domain.Move),
	}
}

func (s *Store) CreateAccount(_ context.Context, account domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == account.Username || strings.EqualFold(existing.Email, account.Email) {
			return domain.Account{}, domain.ErrAccountExists
		}
	}
	s.nextAccountID++
	account.ID = s.nextAccountID
	s.accounts[account.ID] = account
	return account, nil
}

func (s *Store) AccountByUsername(_ context.Context, username string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (s *Store) AccountByID(_ context.Context, id int64) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[id]; ok {
		return account, nil
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (s *Store) CreateSession(_ context.Context, accountID int64, startedAt time.Time) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return domain.GameSession{}, domain.ErrAccountNotFound
	}
	s.nextSessionID++
	session := &domain.GameSession{
		ID:        s.nextSessionID,
		AccountID: accountID,
		StartTime: startedAt,
	}
	s.sessions[session.ID] = session
	return *session, nil
}

func (s *Store) GetSession(_ context.Context, id int64) (domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return *session, nil
}

func (s *Store) CompleteSession(_ context.Context, id, accountID int64, endedAt time.Time, finalScore *int) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.AccountID != accountID || session.Completed {
		return domain.GameSession{}, domain.ErrSessionEnded
	}
	if finalScore != nil && *finalScore > session.Score {
		session.Score = *finalScore
	}
	ended := endedAt
	session.EndTime = &ended
	session.Completed = true
	return *session, nil
}

func (s *Store) AppendMove(_ context.Context, move domain.Move, points int) (domain.Move, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[move.SessionID]
	if !ok {
		return domain.Move{}, 0, domain.ErrSessionNotFound
	}
	if session.Completed {
		return domain.Move{}, 0, domain.ErrSessionCompleted
	}
	s.nextMoveID++
	move.ID = s.nextMoveID
	s.moves[move.SessionID] = append(s.moves[move.SessionID], move)
	session.Score += points
	return move, session.Score, nil
}

func (s *Store) ListMoves(_ context.Context, sessionID int64) ([]domain.Move, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	moves := make([]domain.Move, len(s.moves[sessionID]))
	copy(moves, s.moves[sessionID])
	return moves, nil
}

func (s *Store) OpenSessionIDs(_ context.Context, accountID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for id, session := range s.sessions {
		if session.AccountID == accountID && !session.Completed {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) TopCompleted(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	completed := make([]domain.GameSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.Completed {
			completed = append(completed, *session)
		}
	}
	usernames := make(map[int64]string, len(s.accounts))
	for id, account := range s.accounts {
		usernames[id] = account.Username
	}
	s.mu.RUnlock()

	// score desc, then earlier end time, then session id
	sort.Slice(completed, func(i, j int) bool {
		a, b := completed[i], completed[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.EndTime.Equal(*b.EndTime) {
			return a.EndTime.Before(*b.EndTime)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(completed) > limit {
		completed = completed[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(completed))
	for _, session := range completed {
		entries = append(entries, domain.LeaderboardEntry{
			Username: usernames[session.AccountID],
			Score:    session.Score,
			EndTime:  *session.EndTime,
		})
	}
	return entries, nil
}

func (s *Store) StatsForAccount(_ context.Context, accountID int64) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats domain.UserStats
	for _, session := range s.sessions {
		if session.AccountID != accountID || !session.Completed {
			continue
		}
		stats.TotalGames++
		stats.TotalScore += session.Score
		if session.Score > stats.HighestScore {
			stats.HighestScore = session.Score
		}
	}
	if stats.TotalGames > 0 {
		stats.AverageScore = float64(stats.TotalScore) / float64(stats.TotalGames)
	}
	return stats, nil
}
