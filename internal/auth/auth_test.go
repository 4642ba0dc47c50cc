package auth

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"fuelstreams/internal/errs"
)

func testEngine(t *testing.T, lookup Lookup) *Engine {
	t.Helper()
	e, err := New(lookup, 16, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestExtractKeyPrefersAuthorizationHeader(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "http://x/?api_key=ignored", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	r.Header.Set("X-API-Key", "ignored-too")

	key, ok := ExtractKey(r)
	if !ok || key != "abc123" {
		t.Fatalf("expected abc123, got %q, ok=%v", key, ok)
	}
}

func TestExtractKeyFallsBackToHeaderThenQuery(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "http://x/?api_key=from-query", nil)
	if _, ok := ExtractKey(r); !ok {
		t.Fatal("expected key from query param")
	}

	r2, _ := http.NewRequest(http.MethodGet, "http://x/", nil)
	r2.Header.Set("X-API-Key", "from-header")
	key, ok := ExtractKey(r2)
	if !ok || key != "from-header" {
		t.Fatalf("expected from-header, got %q", key)
	}
}

func TestExtractKeyDecodesQueryParam(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "http://x/?api_key="+url.QueryEscape("a b"), nil)
	key, ok := ExtractKey(r)
	if !ok || key != "a b" {
		t.Fatalf("expected decoded %q, got %q", "a b", key)
	}
}

func TestResolveCachesOnMiss(t *testing.T) {
	calls := 0
	e := testEngine(t, func(ctx context.Context, key string) (*APIKey, bool, error) {
		calls++
		return &APIKey{ID: "k1", Status: StatusActive, Role: Role{Scopes: []Scope{ScopeFull}}}, true, nil
	})

	ctx := context.Background()
	if _, err := e.Resolve(ctx, "raw-key"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := e.Resolve(ctx, "raw-key"); err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one lookup call, got %d", calls)
	}
}

func TestResolveUnknownKeyIsInvalid(t *testing.T) {
	e := testEngine(t, func(ctx context.Context, key string) (*APIKey, bool, error) {
		return nil, false, nil
	})
	_, err := e.Resolve(context.Background(), "missing")
	if !errs.Is(err, errs.KindAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	cases := []struct {
		status  Status
		wantErr bool
	}{
		{StatusActive, false},
		{StatusInactive, true},
		{StatusDeleted, true},
	}
	for _, c := range cases {
		err := CheckStatus(&APIKey{Status: c.status})
		if (err != nil) != c.wantErr {
			t.Errorf("status %v: got err=%v, want error=%v", c.status, err, c.wantErr)
		}
	}
}

func TestCheckScopeFullGrantsEverything(t *testing.T) {
	k := &APIKey{Role: Role{Scopes: []Scope{ScopeFull}}}
	if err := CheckScope(k, ScopeManageApiKeys); err != nil {
		t.Errorf("expected Full scope to grant everything, got %v", err)
	}
}

func TestCheckScopeRejectsMissingScope(t *testing.T) {
	k := &APIKey{Role: Role{Scopes: []Scope{ScopeLiveData}}}
	if err := CheckScope(k, ScopeHistoricalData); err == nil {
		t.Fatal("expected scope error")
	}
}

func TestCheckRateLimitUnlimitedBypasses(t *testing.T) {
	e := testEngine(t, nil)
	k := &APIKey{ID: "k1", Role: Role{RateLimitPerMinute: Unlimited}}
	for i := 0; i < 1000; i++ {
		if err := e.CheckRateLimit(k); err != nil {
			t.Fatalf("expected unlimited key to never be rate limited, got %v at iteration %d", err, i)
		}
	}
}

func TestCheckRateLimitEnforcesCapacity(t *testing.T) {
	e := testEngine(t, nil)
	k := &APIKey{ID: "k1", Role: Role{RateLimitPerMinute: 2}}

	if err := e.CheckRateLimit(k); err != nil {
		t.Fatalf("expected first request allowed, got %v", err)
	}
	if err := e.CheckRateLimit(k); err != nil {
		t.Fatalf("expected second request allowed (burst=2), got %v", err)
	}
	if err := e.CheckRateLimit(k); err == nil {
		t.Fatal("expected third immediate request to be rate limited")
	}
}

func TestSubscriptionLimitChecksAndIncrements(t *testing.T) {
	e := testEngine(t, nil)
	k := &APIKey{ID: "k1", Role: Role{SubscriptionLimit: 1}}

	if err := e.AcquireSubscription(k); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := e.AcquireSubscription(k); err == nil {
		t.Fatal("expected second acquire to exceed subscription limit")
	}
	e.ReleaseSubscription(k)
	if err := e.AcquireSubscription(k); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestCheckHistoricalReach(t *testing.T) {
	k := &APIKey{Role: Role{HistoricalLimit: 10}}
	if err := CheckHistoricalReach(k, 100, 95); err != nil {
		t.Errorf("expected reach of 5 within limit 10 to pass, got %v", err)
	}
	if err := CheckHistoricalReach(k, 100, 50); err == nil {
		t.Error("expected reach of 50 to exceed limit 10")
	}
}

func TestAuthorizeRunsFullGuardChain(t *testing.T) {
	e := testEngine(t, func(ctx context.Context, key string) (*APIKey, bool, error) {
		return &APIKey{ID: "k1", Status: StatusActive, Role: Role{Scopes: []Scope{ScopeLiveData}, RateLimitPerMinute: Unlimited}}, true, nil
	})

	r, _ := http.NewRequest(http.MethodGet, "http://x/", nil)
	r.Header.Set("X-API-Key", "abc")

	if _, err := e.Authorize(context.Background(), r, ScopeLiveData); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if _, err := e.Authorize(context.Background(), r, ScopeManageApiKeys); err == nil {
		t.Fatal("expected scope rejection for ScopeManageApiKeys")
	}
}
