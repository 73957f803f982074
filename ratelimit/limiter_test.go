// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterPerKeyCapacity(t *testing.T) {
	lim := New(Config{PerKeyCapacity: 3, GlobalCapacity: 1000})

	for i := 0; i < 3; i++ {
		res := lim.Allow("tenant-a")
		require.True(t, res.Allowed, "request %d should be allowed within burst", i)
	}

	res := lim.Allow("tenant-a")
	require.False(t, res.Allowed)
	require.Equal(t, "key", res.Bucket)
	require.Greater(t, res.RetryAfter.Seconds(), 0.0)
}

func TestLimiterIndependentKeys(t *testing.T) {
	lim := New(Config{PerKeyCapacity: 1, GlobalCapacity: 1000})

	require.True(t, lim.Allow("tenant-a").Allowed)
	require.False(t, lim.Allow("tenant-a").Allowed)
	require.True(t, lim.Allow("tenant-b").Allowed, "distinct tenant keys must not share a bucket")
}

func TestLimiterGlobalCapacityStricterThanPerKey(t *testing.T) {
	lim := New(Config{PerKeyCapacity: 1000, GlobalCapacity: 2})

	require.True(t, lim.Allow("tenant-a").Allowed)
	require.True(t, lim.Allow("tenant-b").Allowed)

	res := lim.Allow("tenant-c")
	require.False(t, res.Allowed)
	require.Equal(t, "global", res.Bucket)
}
