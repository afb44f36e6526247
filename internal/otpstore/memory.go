package otpstore

import (
	"context"
	"sync"
	"time"

	"wingo-backend/internal/models"
)

type challenge struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// MemoryStore is a process-local Store backed by a mutex-guarded map.
// Expired challenges are rejected on read; StartSweeper removes them in the
// background so abandoned phone numbers do not accumulate.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*challenge
	opts    Options

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*challenge),
		opts:    opts.withDefaults(),
		stop:    make(chan struct{}),
	}
}

func (s *MemoryStore) Issue(ctx context.Context, phone string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.entries[phone] = &challenge{
		code:      code,
		expiresAt: s.opts.Clock().Add(s.opts.TTL),
	}
	s.mu.Unlock()

	return code, nil
}

func (s *MemoryStore) Consume(ctx context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[phone]
	if !ok {
		return models.ErrInvalidOrExpiredOTP
	}

	if s.opts.Clock().After(c.expiresAt) {
		delete(s.entries, phone)
		return models.ErrInvalidOrExpiredOTP
	}

	if !codesEqual(c.code, code) {
		c.attempts++
		if s.opts.MaxAttempts > 0 && c.attempts >= s.opts.MaxAttempts {
			delete(s.entries, phone)
		}
		return models.ErrInvalidOrExpiredOTP
	}

	delete(s.entries, phone)
	return nil
}

// Sweep drops every expired challenge and returns how many were removed
func (s *MemoryStore) Sweep() int {
	now := s.opts.Clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for phone, c := range s.entries {
		if now.After(c.expiresAt) {
			delete(s.entries, phone)
			removed++
		}
	}
	return removed
}

// Len returns the number of challenges currently held, expired or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeper runs Sweep every interval until Stop is called
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweeper. It is safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}
