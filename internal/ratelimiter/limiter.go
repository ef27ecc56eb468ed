package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiters holds one token bucket per key (client IP, provider name).
// Buckets are created lazily and dropped once idle for longer than idleTTL.
type KeyedLimiters struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a KeyedLimiters allowing ratePerSec steady-state tokens per key
// with the given burst. A burst below 1 is raised to ratePerSec.
func New(ratePerSec, burst int) *KeyedLimiters {
	if burst < 1 {
		burst = ratePerSec
	}
	return &KeyedLimiters{
		limit:   rate.Limit(ratePerSec),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether one event for key may happen now, consuming a token if so.
func (kl *KeyedLimiters) Allow(key string) bool {
	return kl.get(key).Allow()
}

// Wait blocks until key's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (kl *KeyedLimiters) Wait(ctx context.Context, key string) error {
	return kl.get(key).Wait(ctx)
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiters) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.buckets)
}

func (kl *KeyedLimiters) get(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	now := kl.now()
	if now.Sub(kl.swept) > kl.idleTTL {
		for k, b := range kl.buckets {
			if now.Sub(b.lastSeen) > kl.idleTTL {
				delete(kl.buckets, k)
			}
		}
		kl.swept = now
	}

	b, ok := kl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(kl.limit, kl.burst)}
		kl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}
