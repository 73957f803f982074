// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/providers"
	"github.com/qwed-gateway/qwed/providers/mock"
)

func TestRouterSelectExplicitPreference(t *testing.T) {
	r := providers.NewRouter("primary", time.Minute)
	r.Register(mock.New("primary"))
	r.Register(mock.New("secondary"))

	p, err := r.Select("secondary", "")
	require.NoError(t, err)
	require.Equal(t, "secondary", p.Name())
}

func TestRouterSelectFallsBackToSystemDefault(t *testing.T) {
	r := providers.NewRouter("primary", time.Minute)
	r.Register(mock.New("primary"))
	r.Register(mock.New("secondary"))

	p, err := r.Select("", "")
	require.NoError(t, err)
	require.Equal(t, "primary", p.Name())
}

func TestRouterOpensCircuitAfterConsecutiveFailures(t *testing.T) {
	r := providers.NewRouter("primary", time.Hour)
	r.Register(mock.New("primary"))

	r.ReportFailure("primary")
	r.ReportFailure("primary")
	state, err := r.CircuitState("primary")
	require.NoError(t, err)
	require.Equal(t, "closed", state)

	r.ReportFailure("primary")
	state, err = r.CircuitState("primary")
	require.NoError(t, err)
	require.Equal(t, "open", state)

	_, err = r.Select("primary", "")
	require.ErrorIs(t, err, providers.ErrNoProviderAvailable)
}

func TestRouterWithFailoverRetriesAutoOnFailure(t *testing.T) {
	r := providers.NewRouter("primary", time.Hour)
	failing := mock.New("primary")
	failing.Fail = true
	failing.FailErr = errors.New("boom")
	r.Register(failing)
	r.Register(mock.New("secondary"))

	var used []string
	err := r.WithFailover(context.Background(), "auto", "", func(ctx context.Context, p providers.Provider) error {
		used = append(used, p.Name())
		if p.Name() == "primary" {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"primary", "secondary"}, used)
}

func TestRouterWithFailoverDoesNotRetryExplicitPreference(t *testing.T) {
	r := providers.NewRouter("primary", time.Hour)
	failing := mock.New("primary")
	r.Register(failing)
	r.Register(mock.New("secondary"))

	err := r.WithFailover(context.Background(), "primary", "", func(ctx context.Context, p providers.Provider) error {
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, providers.ErrNoProviderAvailable)
}
