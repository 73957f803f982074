// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

const tenantKeyPrefix = "tenant:apikey:"

// TenantRepository persists tenants keyed by API-key fingerprint and
// satisfies tenant.Store.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository builds a TenantRepository backed by db.
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Provision writes (or overwrites) the tenant record addressed by
// fingerprint — the control-plane admin path (cmd/gatewayctl) calls
// this when onboarding a tenant or rotating a key.
func (r *TenantRepository) Provision(ctx context.Context, fingerprint string, tc *schema.TenantContext) error {
	encoded, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("store: encode tenant context: %w", err)
	}
	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(tenantKeyPrefix+fingerprint), encoded)
	})
}

// LookupAPIKey resolves fingerprint to the tenant it belongs to, if any.
func (r *TenantRepository) LookupAPIKey(ctx context.Context, fingerprint string) (*schema.TenantContext, bool, error) {
	var tc *schema.TenantContext
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tenantKeyPrefix + fingerprint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			tc = &schema.TenantContext{}
			return json.Unmarshal(val, tc)
		})
	})
	if err != nil {
		return nil, false, err
	}
	if tc == nil {
		return nil, false, nil
	}
	return tc, true, nil
}

// Revoke removes the tenant record for fingerprint, immediately
// unauthorizing that API key.
func (r *TenantRepository) Revoke(ctx context.Context, fingerprint string) error {
	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		err := txn.Delete([]byte(tenantKeyPrefix + fingerprint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
