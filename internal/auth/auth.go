// Package auth implements the Auth & Quota engine of spec §4.8: API-key
// resolution from request headers/query, status and scope checks, a
// token-bucket rate limiter, a subscription-count limiter, and the
// historical-reach check, backed by an LRU key cache. Grounded on
// original_source's web-utils api_key middleware (key resolution, status,
// manager.check_subscriptions/check_rate_limit order) translated into an
// idiomatic Go guard chain instead of an actix Transform.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"fuelstreams/internal/errs"
)

// Status is an API key's lifecycle state (spec §4.8 "Status check").
type Status int

const (
	StatusActive Status = iota
	StatusInactive
	StatusDeleted
)

// Scope is a capability an API key's role may grant (spec §4.8
// "Scope check").
type Scope int

const (
	ScopeFull Scope = iota
	ScopeLiveData
	ScopeHistoricalData
	ScopeRestApi
	ScopeManageApiKeys
)

// Unlimited marks a role limit as having no ceiling (web-utils's
// ApiKeyLimit::Unlimited).
const Unlimited = -1

// Role is the set of limits and scopes a key inherits.
type Role struct {
	Name                string
	Scopes              []Scope
	RateLimitPerMinute  int   // Unlimited bypasses the limiter
	SubscriptionLimit   int   // Unlimited bypasses the counter
	HistoricalLimit     int64 // Unlimited bypasses the reach check
}

func (r Role) grants(scope Scope) bool {
	for _, s := range r.Scopes {
		if s == ScopeFull || s == scope {
			return true
		}
	}
	return false
}

// APIKey is a resolved, cacheable credential (web-utils's ApiKey, trimmed
// to what the engine needs to decide).
type APIKey struct {
	ID     string
	Status Status
	Role   Role
}

// Lookup fetches an APIKey by its raw key string, e.g. from the store's
// api_keys table. Implemented by whatever persistence layer backs the
// keys; the engine only depends on this narrow interface.
type Lookup func(ctx context.Context, key string) (*APIKey, bool, error)

// Engine resolves and authorizes requests per spec §4.8.
type Engine struct {
	lookup Lookup
	cache  *lru.Cache[string, *APIKey]

	rateWindow time.Duration
	limiters   sync.Map // key id -> *rate.Limiter

	subMu  sync.Mutex
	subs   map[string]int // key id -> active subscription count
}

// New builds an Engine with an LRU cache of the given capacity
// (auth.cache_capacity) and a rate-limiter window (auth.rate_window_ms).
func New(lookup Lookup, cacheCapacity int, rateWindow time.Duration) (*Engine, error) {
	if cacheCapacity <= 0 {
		cacheCapacity = 4096
	}
	cache, err := lru.New[string, *APIKey](cacheCapacity)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, errs.ReasonUnexpected, err, "build api key cache")
	}
	return &Engine{
		lookup:     lookup,
		cache:      cache,
		rateWindow: rateWindow,
		subs:       map[string]int{},
	}, nil
}

// ExtractKey pulls the bearer token from Authorization, X-API-Key, or a
// ?api_key= query parameter, in that order (spec §4.8 "Key resolution").
func ExtractKey(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return rest, true
		}
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k, true
	}
	if k := r.URL.Query().Get("api_key"); k != "" {
		if decoded, err := url.QueryUnescape(k); err == nil {
			return decoded, true
		}
		return k, true
	}
	return "", false
}

// Resolve looks up an APIKey by its raw value, consulting the cache first
// and populating it on miss (spec §4.8 "looked up in an in-memory cache;
// on miss, the store is consulted and the result cached").
func (e *Engine) Resolve(ctx context.Context, key string) (*APIKey, error) {
	if key == "" {
		return nil, errs.New(errs.KindAuthorization, errs.ReasonMissing, "no api key presented")
	}
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}

	found, ok, err := e.lookup(ctx, key)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, errs.ReasonExecute, err, "lookup api key")
	}
	if !ok {
		return nil, errs.New(errs.KindAuthorization, errs.ReasonInvalid, "unknown api key")
	}
	e.cache.Add(key, found)
	return found, nil
}

// CheckStatus enforces spec §4.8's status rule.
func CheckStatus(k *APIKey) error {
	switch k.Status {
	case StatusActive:
		return nil
	case StatusInactive:
		return errs.New(errs.KindAuthorization, errs.ReasonInactive, "api key inactive")
	case StatusDeleted:
		return errs.New(errs.KindAuthorization, errs.ReasonDeleted, "api key deleted")
	default:
		return errs.New(errs.KindAuthorization, errs.ReasonInvalid, "api key status unknown")
	}
}

// CheckScope enforces spec §4.8's scope rule: the key's role must grant
// Full or the specific scope the operation requires.
func CheckScope(k *APIKey, required Scope) error {
	if k.Role.grants(required) {
		return nil
	}
	return errs.New(errs.KindAuthorization, errs.ReasonScope, "api key role does not grant required scope")
}

// limiterFor returns (creating if needed) the token bucket for a key,
// refilling at role.RateLimitPerMinute tokens per e.rateWindow.
func (e *Engine) limiterFor(k *APIKey) *rate.Limiter {
	if existing, ok := e.limiters.Load(k.ID); ok {
		return existing.(*rate.Limiter)
	}
	window := e.rateWindow
	if window <= 0 {
		window = time.Minute
	}
	capacity := k.Role.RateLimitPerMinute
	if capacity < 0 {
		capacity = 0
	}
	limiter := rate.NewLimiter(rate.Limit(float64(capacity)/window.Seconds()), capacity)
	actual, _ := e.limiters.LoadOrStore(k.ID, limiter)
	return actual.(*rate.Limiter)
}

// CheckRateLimit enforces spec §4.8's rate limit rule: a token bucket per
// (key_id, 1-minute window) with capacity role.rate_limit_per_minute;
// Unlimited bypasses it entirely.
func (e *Engine) CheckRateLimit(k *APIKey) error {
	if k.Role.RateLimitPerMinute == Unlimited {
		return nil
	}
	if !e.limiterFor(k).Allow() {
		return errs.New(errs.KindAuthorization, errs.ReasonRate, "rate limit exceeded")
	}
	return nil
}

// AcquireSubscription atomically checks-and-increments a key's active
// subscription count against role.SubscriptionLimit (spec §4.8
// "Subscription limit"). Call ReleaseSubscription on unsubscribe/close.
func (e *Engine) AcquireSubscription(k *APIKey) error {
	if k.Role.SubscriptionLimit == Unlimited {
		e.subMu.Lock()
		e.subs[k.ID]++
		e.subMu.Unlock()
		return nil
	}

	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.subs[k.ID] >= k.Role.SubscriptionLimit {
		return errs.New(errs.KindAuthorization, errs.ReasonSubLimit, "subscription limit exceeded")
	}
	e.subs[k.ID]++
	return nil
}

// ReleaseSubscription decrements a key's active subscription count.
func (e *Engine) ReleaseSubscription(k *APIKey) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.subs[k.ID] > 0 {
		e.subs[k.ID]--
	}
}

// CheckHistoricalReach enforces spec §4.8's historical-reach limit: for a
// FromBlock(H) subscription, (head - H) must not exceed
// role.HistoricalLimit.
func CheckHistoricalReach(k *APIKey, head, fromHeight uint64) error {
	if k.Role.HistoricalLimit == Unlimited {
		return nil
	}
	if head < fromHeight {
		return nil
	}
	if int64(head-fromHeight) > k.Role.HistoricalLimit {
		return errs.New(errs.KindAuthorization, errs.ReasonHistLimit, "historical reach limit exceeded")
	}
	return nil
}

// Authorize runs the full guard chain for one protected operation: status,
// scope, rate limit, in that order (spec §4.8; mirrors web-utils's
// middleware.rs call sequence).
func (e *Engine) Authorize(ctx context.Context, r *http.Request, required Scope) (*APIKey, error) {
	keyStr, ok := ExtractKey(r)
	if !ok {
		return nil, errs.New(errs.KindAuthorization, errs.ReasonMissing, "no api key presented")
	}
	key, err := e.Resolve(ctx, keyStr)
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(key); err != nil {
		return nil, err
	}
	if err := CheckScope(key, required); err != nil {
		return nil, err
	}
	if err := e.CheckRateLimit(key); err != nil {
		return nil, err
	}
	return key, nil
}
