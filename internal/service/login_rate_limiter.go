package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	defaultLoginWindow = 15 * time.Minute
	defaultLoginMax    = 10
)

// LoginRateLimiter limita los intentos de login por clave (email normalizado).
type LoginRateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// normalizeLimiterKey devuelve "" para claves vacias, que siempre se rechazan.
func normalizeLimiterKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

type loginRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewLoginRateLimiter crea un rate limiter de ventana deslizante en memoria.
func NewLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *loginRateLimiter) Allow(_ context.Context, key string) bool {
	key = normalizeLimiterKey(key)
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := prune(l.hits[key], cutoff)
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// sweep borra las claves sin intentos dentro de la ventana. Requiere el lock.
func (l *loginRateLimiter) sweep(cutoff time.Time) {
	for key, entries := range l.hits {
		if kept := prune(entries, cutoff); len(kept) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = kept
		}
	}
}

func prune(entries []time.Time, cutoff time.Time) []time.Time {
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
