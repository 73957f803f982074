// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ratelimit implements the gateway's dual token-bucket admission
// check: one bucket per tenant key and one shared global bucket, the
// stricter of the two winning on every request.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const window = 60 * time.Second

// Config sets the two bucket capacities. Rates are derived from capacity
// spread evenly across the 60-second window, matching a token-bucket that
// fully refills once per window.
type Config struct {
	PerKeyCapacity int
	GlobalCapacity int
}

// DefaultConfig matches the gateway's documented defaults: 100 per tenant
// key, 1000 shared globally.
func DefaultConfig() Config {
	return Config{PerKeyCapacity: 100, GlobalCapacity: 1000}
}

// Limiter tracks one rate.Limiter per tenant key plus a shared global
// limiter, guarded by a RWMutex over the per-key map.
type Limiter struct {
	mu     sync.RWMutex
	perKey map[string]*rate.Limiter
	global *rate.Limiter
	cfg    Config
}

// New builds a Limiter from cfg.
func New(cfg Config) *Limiter {
	return &Limiter{
		perKey: make(map[string]*rate.Limiter),
		global: rate.NewLimiter(ratePerSecond(cfg.GlobalCapacity), cfg.GlobalCapacity),
		cfg:    cfg,
	}
}

func ratePerSecond(capacity int) rate.Limit {
	return rate.Limit(float64(capacity) / window.Seconds())
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.perKey[key]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.perKey[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(ratePerSecond(l.cfg.PerKeyCapacity), l.cfg.PerKeyCapacity)
	l.perKey[key] = lim
	return lim
}

// Result is the outcome of an Allow check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
	Bucket     string // "key" or "global", whichever was stricter
}

// Allow checks both buckets for key and reports the stricter result. On
// acceptance both buckets are decremented; on rejection neither is, since
// rate.Limiter.Reserve with a cancelled reservation returns its token.
func (l *Limiter) Allow(key string) Result {
	keyLimiter := l.limiterFor(key)

	now := time.Now()
	keyRes := keyLimiter.ReserveN(now, 1)
	if !keyRes.OK() {
		return Result{Allowed: false, RetryAfter: window, Bucket: "key"}
	}
	if delay := keyRes.DelayFrom(now); delay > 0 {
		keyRes.CancelAt(now)
		return Result{Allowed: false, RetryAfter: delay, Bucket: "key"}
	}

	globalRes := l.global.ReserveN(now, 1)
	if !globalRes.OK() {
		keyRes.CancelAt(now)
		return Result{Allowed: false, RetryAfter: window, Bucket: "global"}
	}
	if delay := globalRes.DelayFrom(now); delay > 0 {
		keyRes.CancelAt(now)
		globalRes.CancelAt(now)
		return Result{Allowed: false, RetryAfter: delay, Bucket: "global"}
	}

	return Result{Allowed: true}
}
