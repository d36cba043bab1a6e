package verification

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-chat-realtime/internal/domain"
	"github.com/go-chat-realtime/internal/pkg/token"
)

const (
	// CodeLength is the number of characters in an issued code.
	CodeLength = 6
	// Alphabet excludes 0/O, 1/I/L so codes survive being read off a screen.
	Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	DefaultTTL           = 5 * time.Minute
	DefaultMaxAttempts   = 30
	DefaultNotifyTimeout = 10 * time.Second

	minTombstoneLife = time.Minute
)

// Notifier delivers a freshly issued code out of band (email, SMS, script).
type Notifier interface {
	NotifyCode(ctx context.Context, email, code string) error
}

type Options struct {
	TTL           time.Duration
	MaxAttempts   int
	NotifyTimeout time.Duration
	// Now is used for issuance timestamps and the verify-time expiry check.
	// The scheduled deletion always runs on the real clock.
	Now func() time.Time
}

type entry struct {
	domain.VerificationCode
	timer *time.Timer
}

// Store keeps at most one live code per email. A code stops being usable at
// IssuedAt+TTL through two independent paths: a timer that retires the entry,
// and a timestamp comparison in Verify. Retired codes leave a tombstone so a
// late Verify answers ErrExpired instead of ErrNotFound.
type Store struct {
	mu            sync.Mutex
	entries       map[string]*entry
	expired       map[string]*int // tombstones of timed-out codes
	notifier      Notifier
	ttl           time.Duration
	maxAttempts   int
	notifyTimeout time.Duration
	now           func() time.Time
}

func NewStore(notifier Notifier, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		entries:       make(map[string]*entry),
		expired:       make(map[string]*int),
		notifier:      notifier,
		ttl:           opts.TTL,
		maxAttempts:   opts.MaxAttempts,
		notifyTimeout: opts.NotifyTimeout,
		now:           opts.Now,
	}
}

// Issue generates a new code for email, replacing any previous one and
// resetting its attempt counter, then hands it to the notifier.
// A notifier failure is returned wrapped in domain.ErrNotifierFailure but the
// stored code stays valid.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("email required: %w", domain.ErrBadRequest)
	}
	code, err := token.NewCode(Alphabet, CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	s.mu.Lock()
	if old, ok := s.entries[email]; ok {
		old.timer.Stop()
	}
	delete(s.expired, email)
	e := &entry{VerificationCode: domain.VerificationCode{
		Email:    email,
		Code:     code,
		IssuedAt: s.now(),
	}}
	e.timer = time.AfterFunc(s.ttl, func() { s.expire(email, e) })
	s.entries[email] = e
	s.mu.Unlock()

	if s.notifier == nil {
		return code, nil
	}
	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyCode(nctx, email, code); err != nil {
		slog.Warn("verification code delivery failed", "email", email, "err", err)
		return code, fmt.Errorf("deliver code: %w: %w", domain.ErrNotifierFailure, err)
	}
	return code, nil
}

// Verify checks supplied against the live code for email without using it
// up. Wrong guesses still count against the attempt limit.
func (s *Store) Verify(email, supplied string) error {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkLocked(email, supplied)
}

// Redeem verifies supplied and, on success, deletes the code in the same
// critical section. Of any number of concurrent Redeem calls with the right
// code at most one returns nil.
func (s *Store) Redeem(email, supplied string) error {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(email, supplied); err != nil {
		return err
	}
	s.removeLocked(email)
	return nil
}

// Consume removes the live code for email and reports whether one existed.
// Guarded actions should prefer Redeem, which cannot race another caller.
func (s *Store) Consume(email string) bool {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[email]
	s.removeLocked(email)
	return ok
}

func (s *Store) checkLocked(email, supplied string) error {
	supplied = strings.ToUpper(strings.TrimSpace(supplied))
	e, ok := s.entries[email]
	if !ok {
		if _, gone := s.expired[email]; gone {
			return fmt.Errorf("verification code for %s: %w", email, domain.ErrExpired)
		}
		return fmt.Errorf("no verification code for %s: %w", email, domain.ErrNotFound)
	}
	if !s.now().Before(e.ExpiresAt(s.ttl)) {
		s.tombstoneLocked(email, e)
		return fmt.Errorf("verification code for %s: %w", email, domain.ErrExpired)
	}
	if subtle.ConstantTimeCompare([]byte(e.Code), []byte(supplied)) == 1 {
		return nil
	}
	e.Attempts++
	if e.Attempts >= s.maxAttempts {
		s.removeLocked(email)
		return fmt.Errorf("verification code for %s exhausted after %d attempts: %w", email, e.Attempts, domain.ErrTooManyAttempts)
	}
	return fmt.Errorf("%d attempts left: %w", s.maxAttempts-e.Attempts, domain.ErrWrongCode)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// expire is the timer callback. It only deletes e itself so a timer that fires
// after a re-issue cannot remove the newer code.
func (s *Store) expire(email string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[email]; ok && cur == e {
		s.tombstoneLocked(email, e)
		slog.Debug("verification code expired", "email", email)
	}
}

// tombstoneLocked retires e so Verify reports it as expired rather than
// missing. The tombstone lives for one more TTL (at least minTombstoneLife),
// or until the next Issue for the same email.
func (s *Store) tombstoneLocked(email string, e *entry) {
	e.timer.Stop()
	delete(s.entries, email)
	marker := new(int)
	s.expired[email] = marker
	life := s.ttl
	if life < minTombstoneLife {
		life = minTombstoneLife
	}
	time.AfterFunc(life, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.expired[email] == marker {
			delete(s.expired, email)
		}
	})
}

func (s *Store) removeLocked(email string) {
	if e, ok := s.entries[email]; ok {
		e.timer.Stop()
		delete(s.entries, email)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
