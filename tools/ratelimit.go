package tools

import (
	"sync"
	"time"
)

// Limiter é a interface mínima do rate limit de intake. A implementação
// padrão é em memória (por processo); com scale-out horizontal cada instância
// aplica sua própria cota — best effort assumido, não garantia global.
// Trocar por um contador compartilhado não exige mudar os callers.
type Limiter interface {
	Allow(key string) bool
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter conta hits por chave numa janela fixa.
type RateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow registra um hit e diz se a chave ainda está dentro da cota.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.buckets[key] = &bucket{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if b.count >= rl.max {
		return false
	}
	b.count++
	return true
}
