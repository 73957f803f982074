// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/cache"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

func TestCachePutThenGetIsIdempotent(t *testing.T) {
	c := cache.New()
	key := cache.Key{TenantID: "t1", Fingerprint: "f1"}
	c.Put(key, schema.VerificationResult{Verdict: schema.VerdictVerified})

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, schema.VerdictVerified, got.Verdict)
	require.True(t, got.Cached)

	got2, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, got.Verdict, got2.Verdict)
}

func TestCacheMissForUnknownKey(t *testing.T) {
	c := cache.New()
	_, ok := c.Get(cache.Key{TenantID: "t1", Fingerprint: "missing"})
	require.False(t, ok)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c := cache.New(cache.WithTTL(time.Millisecond))
	key := cache.Key{TenantID: "t1", Fingerprint: "f1"}
	c.Put(key, schema.VerificationResult{Verdict: schema.VerdictVerified})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(key)
	require.False(t, ok)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.New(cache.WithMaxEntries(2))
	k1 := cache.Key{TenantID: "t1", Fingerprint: "f1"}
	k2 := cache.Key{TenantID: "t1", Fingerprint: "f2"}
	k3 := cache.Key{TenantID: "t1", Fingerprint: "f3"}

	c.Put(k1, schema.VerificationResult{Verdict: schema.VerdictVerified})
	c.Put(k2, schema.VerificationResult{Verdict: schema.VerdictVerified})
	c.Get(k1) // k1 now more recently used than k2
	c.Put(k3, schema.VerificationResult{Verdict: schema.VerdictVerified})

	_, ok1 := c.Get(k1)
	_, ok2 := c.Get(k2)
	_, ok3 := c.Get(k3)
	require.True(t, ok1)
	require.False(t, ok2)
	require.True(t, ok3)
}

func TestCacheInvalidateTenantRemovesOnlyThatTenant(t *testing.T) {
	c := cache.New()
	a := cache.Key{TenantID: "a", Fingerprint: "f"}
	b := cache.Key{TenantID: "b", Fingerprint: "f"}
	c.Put(a, schema.VerificationResult{Verdict: schema.VerdictVerified})
	c.Put(b, schema.VerificationResult{Verdict: schema.VerdictVerified})

	removed := c.InvalidateTenant("a")
	require.Equal(t, 1, removed)

	_, ok := c.Get(a)
	require.False(t, ok)
	_, ok = c.Get(b)
	require.True(t, ok)
}
