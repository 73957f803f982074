// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reflect_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/ratelimit"
	"github.com/qwed-gateway/qwed/services/gateway/reflect"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

func TestLoopSucceedsOnFirstAttempt(t *testing.T) {
	loop := reflect.New(ratelimit.New(ratelimit.DefaultConfig()), 0)
	outcome := loop.Run(context.Background(), "k1", "mock", "2+2", func(ctx context.Context, prompt string) (schema.TranslationTask, error) {
		return schema.TranslationTask{Math: &schema.MathTask{Expression: "2+2"}}, nil
	})
	require.True(t, outcome.Succeeded)
	require.Len(t, outcome.Attempts, 1)
	require.True(t, outcome.Attempts[0].Succeeded)
}

func TestLoopRetriesAndEventuallySucceeds(t *testing.T) {
	loop := reflect.New(ratelimit.New(ratelimit.DefaultConfig()), 0)
	calls := 0
	outcome := loop.Run(context.Background(), "k2", "mock", "bad query", func(ctx context.Context, prompt string) (schema.TranslationTask, error) {
		calls++
		if calls < 2 {
			return schema.TranslationTask{}, errors.New("parse failure")
		}
		return schema.TranslationTask{Math: &schema.MathTask{Expression: "1+1"}}, nil
	})
	require.True(t, outcome.Succeeded)
	require.Len(t, outcome.Attempts, 2)
	require.False(t, outcome.Attempts[0].Succeeded)
	require.True(t, outcome.Attempts[1].Succeeded)
}

func TestLoopExhaustsAttemptsAndReportsLastDiagnostic(t *testing.T) {
	loop := reflect.New(ratelimit.New(ratelimit.DefaultConfig()), 0)
	outcome := loop.Run(context.Background(), "k3", "mock", "always bad", func(ctx context.Context, prompt string) (schema.TranslationTask, error) {
		return schema.TranslationTask{}, errors.New("still broken")
	})
	require.False(t, outcome.Succeeded)
	require.Len(t, outcome.Attempts, 3)
	require.Equal(t, "still broken", outcome.Diagnostic)
}

func TestLoopStopsWhenRateBudgetExhausted(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{PerKeyCapacity: 1, GlobalCapacity: 100})
	loop := reflect.New(limiter, 0)
	// Consume the only token the key has before Run even starts its retry.
	limiter.Allow("k4")

	calls := 0
	outcome := loop.Run(context.Background(), "k4", "mock", "bad query", func(ctx context.Context, prompt string) (schema.TranslationTask, error) {
		calls++
		return schema.TranslationTask{}, errors.New("parse failure")
	})
	require.False(t, outcome.Succeeded)
	require.Equal(t, 1, calls) // first attempt runs uncharged; the retry is blocked
	require.Len(t, outcome.Attempts, 2)
	require.Contains(t, outcome.Attempts[1].Diagnostic, "rate budget exhausted")
}
