package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// ReportCache 未启用 redis 时使用的带过期时间的内存缓存
type ReportCache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewReportCache() *ReportCache {
	return &ReportCache{entries: make(map[string]entry)}
}

func (c *ReportCache) Get(_ context.Context, quizID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[quizID]
	if !ok {
		return nil, nil
	}
	if e.expired(time.Now()) {
		delete(c.entries, quizID)
		return nil, nil
	}
	return append([]byte(nil), e.data...), nil
}

func (c *ReportCache) Set(_ context.Context, quizID string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.entries[quizID] = e
	return nil
}

func (c *ReportCache) Delete(_ context.Context, quizID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, quizID)
	return nil
}

type TokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{revoked: make(map[string]time.Time)}
}

func (s *TokenStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (s *TokenStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
