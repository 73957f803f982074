// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoProviderAvailable is returned when every configured provider's
// circuit is open.
var ErrNoProviderAvailable = errors.New("providers: no provider available")

const defaultCoolDown = 30 * time.Second
const failureThreshold = 3

type circuitState string

const (
	circuitClosed   circuitState = "closed"
	circuitOpen     circuitState = "open"
	circuitHalfOpen circuitState = "half_open"
)

// circuit tracks one provider's consecutive-failure count and open/closed
// state, guarded by Router.mu the same way the teacher's
// MultiModelManager guards its per-model map.
type circuit struct {
	state            circuitState
	consecutiveFails int
	openedAt         time.Time
}

// Router selects a Provider per request and protects against a failing
// upstream via a per-provider circuit breaker.
type Router struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	order         []string // configured order, for "auto"
	systemDefault string
	circuits      map[string]*circuit
	coolDown      time.Duration
}

// NewRouter builds a Router. systemDefault is used when neither the
// request nor the tenant names a preferred provider.
func NewRouter(systemDefault string, coolDown time.Duration) *Router {
	if coolDown <= 0 {
		coolDown = defaultCoolDown
	}
	return &Router{
		providers:     make(map[string]Provider),
		circuits:      make(map[string]*circuit),
		systemDefault: systemDefault,
		coolDown:      coolDown,
	}
}

// Register adds p to the router's configured set, in registration order
// (the order "auto" fails over through).
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	r.providers[name] = p
	r.order = append(r.order, name)
	r.circuits[name] = &circuit{state: circuitClosed}
}

// Select returns the provider to use for this call, given an explicit
// per-request preference and a tenant default, in the order explicit →
// tenant default → system default. "auto" enumerates all configured
// providers in registration order and returns the first whose circuit is
// not open.
func (r *Router) Select(requestPreference, tenantDefault string) (Provider, error) {
	candidate := requestPreference
	if candidate == "" {
		candidate = tenantDefault
	}
	if candidate == "" {
		candidate = r.systemDefault
	}

	if candidate != "auto" && candidate != "" {
		if p, ok := r.providerIfAvailable(candidate); ok {
			return p, nil
		}
	}

	r.mu.RLock()
	order := append([]string(nil), r.order...)
	r.mu.RUnlock()

	for _, name := range order {
		if p, ok := r.providerIfAvailable(name); ok {
			return p, nil
		}
	}
	return nil, ErrNoProviderAvailable
}

func (r *Router) providerIfAvailable(name string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, false
	}
	c := r.circuits[name]
	if c.state == circuitOpen {
		if time.Since(c.openedAt) >= r.coolDown {
			c.state = circuitHalfOpen
		} else {
			return nil, false
		}
	}
	return p, true
}

// ReportSuccess transitions name's circuit back to closed and resets its
// failure count. Call after every successful capability call.
func (r *Router) ReportSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.circuits[name]
	if !ok {
		return
	}
	c.state = circuitClosed
	c.consecutiveFails = 0
}

// ReportFailure records a failure for name (connection error or upstream
// 5xx). After failureThreshold consecutive failures the circuit opens for
// coolDown.
func (r *Router) ReportFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.circuits[name]
	if !ok {
		return
	}
	c.consecutiveFails++
	if c.consecutiveFails >= failureThreshold {
		c.state = circuitOpen
		c.openedAt = time.Now()
	}
}

// CircuitState reports name's current state, for /metrics and admin CLI
// introspection.
func (r *Router) CircuitState(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.circuits[name]
	if !ok {
		return "", fmt.Errorf("providers: unknown provider %q", name)
	}
	return string(c.state), nil
}

// WithFailover calls fn with the selected provider; on a reported upstream
// failure it reports the failure to the circuit breaker and, if the
// request preference was "auto", retries with the next available
// provider. It reports success on a nil error.
func (r *Router) WithFailover(ctx context.Context, requestPreference, tenantDefault string, fn func(ctx context.Context, p Provider) error) error {
	tried := map[string]bool{}
	preference := requestPreference
	for {
		p, err := r.Select(preference, tenantDefault)
		if err != nil {
			return err
		}
		name := p.Name()
		if tried[name] {
			p = nil
			r.mu.RLock()
			order := append([]string(nil), r.order...)
			r.mu.RUnlock()
			for _, n := range order {
				if tried[n] {
					continue
				}
				if next, ok := r.providerIfAvailable(n); ok {
					p = next
					break
				}
			}
			if p == nil {
				return ErrNoProviderAvailable
			}
			name = p.Name()
		}
		tried[name] = true

		err = fn(ctx, p)
		if err == nil {
			r.ReportSuccess(name)
			return nil
		}
		r.ReportFailure(name)

		effectivePreference := requestPreference
		if effectivePreference == "" {
			effectivePreference = tenantDefault
		}
		if effectivePreference != "auto" {
			return err
		}
		preference = "auto"
	}
}
