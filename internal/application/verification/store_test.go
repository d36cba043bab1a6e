package verification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chat-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyCode(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

// blockingNotifier waits for its context to end.
type blockingNotifier struct{}

func (blockingNotifier) NotifyCode(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- helpers ---

func newTestStore(clock *fakeClock) *Store {
	return NewStore(nil, Options{Now: clock.Now})
}

func otherCode(code string) string {
	if code == "222222" {
		return "333333"
	}
	return "222222"
}

// --- Issue ---

func TestIssue_CodeShape(t *testing.T) {
	s := newTestStore(newFakeClock())
	for i := 0; i < 50; i++ {
		code, err := s.Issue(context.Background(), "a@b.com")
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
		}
	}
	assert.Equal(t, 1, s.Len())
}

func TestAlphabet_ExcludesAmbiguousGlyphs(t *testing.T) {
	for _, r := range "01OIL" {
		assert.False(t, strings.ContainsRune(Alphabet, r), "alphabet contains %q", r)
	}
}

func TestIssue_EmptyEmail(t *testing.T) {
	s := newTestStore(newFakeClock())
	_, err := s.Issue(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestIssue_CallsNotifier(t *testing.T) {
	n := &mockNotifier{}
	n.On("NotifyCode", mock.Anything, "a@b.com", mock.AnythingOfType("string")).Return(nil)

	s := NewStore(n, Options{})
	code, err := s.Issue(context.Background(), "A@B.com")
	require.NoError(t, err)
	n.AssertCalled(t, "NotifyCode", mock.Anything, "a@b.com", code)
}

func TestIssue_NotifierFailureKeepsCode(t *testing.T) {
	n := &mockNotifier{}
	n.On("NotifyCode", mock.Anything, "a@b.com", mock.Anything).Return(errors.New("smtp down"))

	s := NewStore(n, Options{})
	code, err := s.Issue(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotifierFailure))
	assert.ErrorContains(t, err, "smtp down")
	assert.NoError(t, s.Verify("a@b.com", code))
}

func TestIssue_NotifierIsTimeBounded(t *testing.T) {
	s := NewStore(blockingNotifier{}, Options{NotifyTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := s.Issue(context.Background(), "a@b.com")
	assert.True(t, errors.Is(err, domain.ErrNotifierFailure))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

// --- Verify / Redeem ---

func TestRedeem_UsesCodeOnce(t *testing.T) {
	s := newTestStore(newFakeClock())
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	require.NoError(t, s.Verify("a@b.com", code))
	require.NoError(t, s.Redeem("a@b.com", code))

	err = s.Redeem("a@b.com", code)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 0, s.Len())
}

func TestConsume_RemovesLiveCode(t *testing.T) {
	s := newTestStore(newFakeClock())
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	assert.True(t, s.Consume("A@b.com"))
	assert.False(t, s.Consume("a@b.com"))
	assert.True(t, errors.Is(s.Verify("a@b.com", code), domain.ErrNotFound))
}

func TestRedeem_WrongCodeKeepsEntry(t *testing.T) {
	s := newTestStore(newFakeClock())
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	assert.True(t, errors.Is(s.Redeem("a@b.com", otherCode(code)), domain.ErrWrongCode))
	assert.NoError(t, s.Redeem("a@b.com", code))
}

func TestRedeem_ConcurrentCallersSucceedOnce(t *testing.T) {
	s := newTestStore(newFakeClock())
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	const callers = 50
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		start = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.Redeem("a@b.com", code) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestVerify_NormalizesInput(t *testing.T) {
	s := newTestStore(newFakeClock())
	code, err := s.Issue(context.Background(), "Alice@Test.com")
	require.NoError(t, err)
	assert.NoError(t, s.Verify(" alice@test.com ", strings.ToLower(code)))
}

func TestVerify_UnknownEmail(t *testing.T) {
	s := newTestStore(newFakeClock())
	err := s.Verify("nobody@b.com", "ABCDEF")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerify_WrongCode(t *testing.T) {
	s := newTestStore(newFakeClock())
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	err = s.Verify("a@b.com", otherCode(code))
	assert.True(t, errors.Is(err, domain.ErrWrongCode))
	assert.ErrorContains(t, err, "29 attempts left")
	assert.NoError(t, s.Verify("a@b.com", code))
}

func TestVerify_AttemptLimitExhaustsEntry(t *testing.T) {
	s := newTestStore(newFakeClock())
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)
	wrong := otherCode(code)

	for i := 1; i < DefaultMaxAttempts; i++ {
		err := s.Verify("a@b.com", wrong)
		require.True(t, errors.Is(err, domain.ErrWrongCode), "attempt %d: %v", i, err)
	}
	err = s.Verify("a@b.com", wrong)
	assert.True(t, errors.Is(err, domain.ErrTooManyAttempts))

	// the 31st call fails even with the right code
	err = s.Verify("a@b.com", code)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 0, s.Len())
}

func TestIssue_OverwritesAndResetsAttempts(t *testing.T) {
	s := newTestStore(newFakeClock())
	first, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)
	for i := 0; i < DefaultMaxAttempts-1; i++ {
		require.True(t, errors.Is(s.Verify("a@b.com", otherCode(first)), domain.ErrWrongCode))
	}

	second, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		require.True(t, errors.Is(s.Verify("a@b.com", otherCode(second)), domain.ErrWrongCode))
	}
	if first != second {
		assert.True(t, errors.Is(s.Verify("a@b.com", first), domain.ErrTooManyAttempts))
		return
	}
	assert.NoError(t, s.Verify("a@b.com", second))
}

// --- expiry ---

func TestVerify_PassiveExpiry(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	clock.Advance(DefaultTTL - time.Second)
	require.NoError(t, s.Verify("a@b.com", code))

	clock.Advance(time.Second)
	err = s.Verify("a@b.com", code)
	assert.True(t, errors.Is(err, domain.ErrExpired))

	// still expired, not missing, on a retry
	err = s.Redeem("a@b.com", code)
	assert.True(t, errors.Is(err, domain.ErrExpired))
	assert.Equal(t, 0, s.Len())
}

func TestActiveExpiry_RetiresWithoutVerify(t *testing.T) {
	// The fake clock never moves, so only the timer can retire the entry.
	s := NewStore(nil, Options{TTL: 20 * time.Millisecond, Now: newFakeClock().Now})
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(s.Verify("a@b.com", code), domain.ErrExpired))
}

func TestExpiry_RealClockReportsExpired(t *testing.T) {
	s := NewStore(nil, Options{TTL: 50 * time.Millisecond})
	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	err = s.Redeem("a@b.com", code)
	assert.True(t, errors.Is(err, domain.ErrExpired), "got %v", err)
	assert.Equal(t, "expired", domain.ErrorCode(err))
}

func TestIssue_ClearsExpiredTombstone(t *testing.T) {
	s := NewStore(nil, Options{TTL: 20 * time.Millisecond, Now: newFakeClock().Now})
	_, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.NoError(t, s.Redeem("a@b.com", code))
	assert.True(t, errors.Is(s.Verify("a@b.com", code), domain.ErrNotFound))
}

func TestExpire_IgnoresReplacedEntry(t *testing.T) {
	s := newTestStore(newFakeClock())
	_, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)
	s.mu.Lock()
	stale := s.entries["a@b.com"]
	s.mu.Unlock()

	code, err := s.Issue(context.Background(), "a@b.com")
	require.NoError(t, err)

	s.expire("a@b.com", stale)
	assert.NoError(t, s.Verify("a@b.com", code))
}
