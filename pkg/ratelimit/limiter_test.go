package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// memoryWindowStore is an in-process WindowStore for tests.
type memoryWindowStore struct {
	mu   sync.Mutex
	sets map[string]map[string]int64 // key -> member -> score
}

func newMemoryWindowStore() *memoryWindowStore {
	return &memoryWindowStore{sets: make(map[string]map[string]int64)}
}

func (s *memoryWindowStore) PurgeAndCount(ctx context.Context, key string, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.sets[key]
	for member, score := range set {
		if score <= cutoff {
			delete(set, member)
		}
	}
	return int64(len(set)), nil
}

func (s *memoryWindowStore) Add(ctx context.Context, key, member string, score int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sets[key] == nil {
		s.sets[key] = make(map[string]int64)
	}
	s.sets[key][member] = score
	return nil
}

func (s *memoryWindowStore) OldestScore(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.sets[key]
	if len(set) == 0 {
		return 0, false, nil
	}
	scores := make([]int64, 0, len(set))
	for _, score := range set {
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i] < scores[j] })
	return scores[0], true, nil
}

// unreachableStore simulates a store outage.
type unreachableStore struct{}

func (unreachableStore) PurgeAndCount(ctx context.Context, key string, cutoff int64) (int64, error) {
	return 0, errors.New("connection refused")
}
func (unreachableStore) Add(ctx context.Context, key, member string, score int64, ttl time.Duration) error {
	return errors.New("connection refused")
}
func (unreachableStore) OldestScore(ctx context.Context, key string) (int64, bool, error) {
	return 0, false, errors.New("connection refused")
}

func newTestLimiter(t *testing.T, store WindowStore, quotas map[string]Quota, fallback *Quota) *Limiter {
	t.Helper()
	table, err := NewQuotaTable(quotas, nil, fallback)
	if err != nil {
		t.Fatalf("NewQuotaTable failed: %v", err)
	}
	return NewLimiter(store, table)
}

func TestLimiter_SlidingWindowBoundary(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(t, newMemoryWindowStore(),
		map[string]Quota{"/go": {MaxRequests: 3, Window: time.Minute}}, nil)

	// Quota (3, 60s): three rapid requests accepted, the fourth rejected.
	for i := 1; i <= 3; i++ {
		if limiter.IsLimitExceeded(ctx, "/go", "A") {
			t.Fatalf("Request %d should be accepted", i)
		}
	}
	if !limiter.IsLimitExceeded(ctx, "/go", "A") {
		t.Error("Request 4 should be rejected")
	}
}

func TestLimiter_RejectedRequestNotCounted(t *testing.T) {
	ctx := context.Background()
	store := newMemoryWindowStore()
	limiter := newTestLimiter(t, store,
		map[string]Quota{"/go": {MaxRequests: 1, Window: time.Minute}}, nil)

	if limiter.IsLimitExceeded(ctx, "/go", "A") {
		t.Fatal("First request should be accepted")
	}
	// Many rejected requests must not grow the window.
	for i := 0; i < 5; i++ {
		if !limiter.IsLimitExceeded(ctx, "/go", "A") {
			t.Fatal("Expected rejection while over quota")
		}
	}
	if got := len(store.sets["/go:A"]); got != 1 {
		t.Errorf("Expected 1 registered member, got %d", got)
	}
}

func TestLimiter_PurgeRestoresQuota(t *testing.T) {
	ctx := context.Background()
	store := newMemoryWindowStore()
	limiter := newTestLimiter(t, store,
		map[string]Quota{"/go": {MaxRequests: 1, Window: time.Second}}, nil)

	base := time.Now()
	limiter.now = func() time.Time { return base }

	if limiter.IsLimitExceeded(ctx, "/go", "A") {
		t.Fatal("First request should be accepted")
	}
	if !limiter.IsLimitExceeded(ctx, "/go", "A") {
		t.Fatal("Second request should be rejected")
	}

	// After the window passes, the old member is purged and the quota
	// is available again.
	limiter.now = func() time.Time { return base.Add(2 * time.Second) }
	if limiter.IsLimitExceeded(ctx, "/go", "A") {
		t.Error("Request after the window should be accepted")
	}
}

func TestLimiter_SameSecondRequestsRegisterDistinctMembers(t *testing.T) {
	ctx := context.Background()
	store := newMemoryWindowStore()
	limiter := newTestLimiter(t, store,
		map[string]Quota{"/go": {MaxRequests: 10, Window: time.Minute}}, nil)

	fixed := time.Now()
	limiter.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		if limiter.IsLimitExceeded(ctx, "/go", "A") {
			t.Fatalf("Request %d should be accepted", i+1)
		}
	}
	if got := len(store.sets["/go:A"]); got != 3 {
		t.Errorf("Expected 3 distinct members for same-second requests, got %d", got)
	}
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(t, newMemoryWindowStore(),
		map[string]Quota{"/go": {MaxRequests: 1, Window: time.Minute}}, nil)

	if limiter.IsLimitExceeded(ctx, "/go", "A") {
		t.Fatal("A's first request should be accepted")
	}
	if !limiter.IsLimitExceeded(ctx, "/go", "A") {
		t.Fatal("A's second request should be rejected")
	}
	if limiter.IsLimitExceeded(ctx, "/go", "B") {
		t.Error("B's first request should be accepted despite A's exhaustion")
	}
}

func TestLimiter_FailOpenOnStoreOutage(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(t, unreachableStore{},
		map[string]Quota{"/go": {MaxRequests: 1, Window: time.Minute}}, nil)

	// With the store unreachable, no volume of requests is rejected.
	for i := 0; i < 20; i++ {
		if limiter.IsLimitExceeded(ctx, "/go", "A") {
			t.Fatal("Expected fail-open behavior during store outage")
		}
	}
}

func TestLimiter_UnconfiguredRouteIsUnlimited(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(t, newMemoryWindowStore(),
		map[string]Quota{"/go": {MaxRequests: 1, Window: time.Minute}}, nil)

	for i := 0; i < 10; i++ {
		if limiter.IsLimitExceeded(ctx, "/other", "A") {
			t.Fatal("Route without quota should be unlimited")
		}
	}
}

func TestLimiter_Info(t *testing.T) {
	ctx := context.Background()
	store := newMemoryWindowStore()
	limiter := newTestLimiter(t, store,
		map[string]Quota{"/go": {MaxRequests: 3, Window: time.Minute}}, nil)

	base := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return base }

	t.Run("empty window", func(t *testing.T) {
		info, ok := limiter.Info(ctx, "/go", "A")
		if !ok {
			t.Fatal("Expected quota info for configured route")
		}
		if info.Limit != 3 || info.Remaining != 3 {
			t.Errorf("Expected 3/3, got %d/%d", info.Remaining, info.Limit)
		}
		if !info.Reset.Equal(base.Add(time.Minute)) {
			t.Errorf("Expected reset at now+window, got %v", info.Reset)
		}
	})

	t.Run("partially consumed", func(t *testing.T) {
		if limiter.IsLimitExceeded(ctx, "/go", "A") {
			t.Fatal("Request should be accepted")
		}
		info, _ := limiter.Info(ctx, "/go", "A")
		if info.Remaining != 2 {
			t.Errorf("Expected 2 remaining, got %d", info.Remaining)
		}
		// Reset now derives from the oldest member.
		want := base.Add(time.Minute)
		if !info.Reset.Equal(want) {
			t.Errorf("Expected reset %v, got %v", want, info.Reset)
		}
	})

	t.Run("unlimited route", func(t *testing.T) {
		if _, ok := limiter.Info(ctx, "/other", "A"); ok {
			t.Error("Expected no info for unlimited route")
		}
	})
}

func TestQuotaTable_ResolutionOrder(t *testing.T) {
	fallback := &Quota{MaxRequests: 100, Window: time.Minute}
	table, err := NewQuotaTable(
		map[string]Quota{"/go": {MaxRequests: 10, Window: time.Minute}},
		nil,
		fallback,
	)
	if err != nil {
		t.Fatalf("NewQuotaTable failed: %v", err)
	}
	if err := table.AddPattern("^/s/[a-z-]+$", Quota{MaxRequests: 30, Window: time.Minute}); err != nil {
		t.Fatalf("AddPattern failed: %v", err)
	}

	tests := []struct {
		route   string
		wantMax int
	}{
		{"/go", 10},         // exact match wins
		{"/s/acme-corp", 30}, // pattern match
		{"/anything", 100},   // fallback
	}
	for _, tt := range tests {
		quota, ok := table.Resolve(tt.route)
		if !ok {
			t.Errorf("Resolve(%q) reported unlimited", tt.route)
			continue
		}
		if quota.MaxRequests != tt.wantMax {
			t.Errorf("Resolve(%q).MaxRequests = %d, want %d", tt.route, quota.MaxRequests, tt.wantMax)
		}
	}
}

func TestQuotaTable_ConstructorPatternOrder(t *testing.T) {
	// The narrow pattern is listed first and must win for routes both
	// patterns match.
	table, err := NewQuotaTable(nil, []PatternQuota{
		{Pattern: "^/p/[0-9]+$", Quota: Quota{MaxRequests: 5, Window: time.Minute}},
		{Pattern: "^/p/", Quota: Quota{MaxRequests: 50, Window: time.Minute}},
	}, nil)
	if err != nil {
		t.Fatalf("NewQuotaTable failed: %v", err)
	}

	quota, ok := table.Resolve("/p/42")
	if !ok || quota.MaxRequests != 5 {
		t.Errorf("Resolve(/p/42) = %+v (ok=%v), want first pattern's quota", quota, ok)
	}
	quota, ok = table.Resolve("/p/specials")
	if !ok || quota.MaxRequests != 50 {
		t.Errorf("Resolve(/p/specials) = %+v (ok=%v), want second pattern's quota", quota, ok)
	}

	if _, err := NewQuotaTable(nil, []PatternQuota{
		{Pattern: "[", Quota: Quota{MaxRequests: 1, Window: time.Minute}},
	}, nil); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestQuotaTable_NoFallbackMeansUnlimited(t *testing.T) {
	table, err := NewQuotaTable(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := table.Resolve("/anything"); ok {
		t.Error("Expected unlimited resolution without any quota")
	}
}
