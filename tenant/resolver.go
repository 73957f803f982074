// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tenant resolves an API key into a TenantContext once at ingress,
// so every downstream call and log line carries an identical, immutable
// view of who the caller is.
package tenant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// ErrUnauthorized is returned when a key does not resolve to any tenant.
var ErrUnauthorized = errors.New("tenant: unauthorized")

// ErrSuspended is the error for a key whose organization has been
// suspended. Resolve does not return it: a stored TenantContext carries
// no suspension state.
var ErrSuspended = errors.New("tenant: organization suspended")

// Store is the subset of the persistence layer the resolver depends on.
// store.TenantRepository satisfies this.
type Store interface {
	LookupAPIKey(ctx context.Context, fingerprint string) (*schema.TenantContext, bool, error)
}

// Resolver turns a bearer API key into a TenantContext.
type Resolver struct {
	store Store
}

// NewResolver builds a Resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Fingerprint hashes a raw API key the same way keys are stored: the
// gateway never persists or logs the raw key, only its fingerprint.
func Fingerprint(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// Resolve looks up rawKey and returns the tenant it belongs to. The
// returned *schema.TenantContext must not be mutated; it is shared as a
// read-only value for the lifetime of the request.
func (r *Resolver) Resolve(ctx context.Context, rawKey string) (*schema.TenantContext, error) {
	if rawKey == "" {
		return nil, ErrUnauthorized
	}
	tenant, found, err := r.store.LookupAPIKey(ctx, Fingerprint(rawKey))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnauthorized
	}
	return tenant, nil
}
