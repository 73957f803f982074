// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/audit"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// memBackend is an in-memory audit.Backend used only by these tests.
type memBackend struct {
	entries map[uint64]schema.AuditEntry
	tailSeq uint64
}

func newMemBackend() *memBackend {
	return &memBackend{entries: make(map[uint64]schema.AuditEntry)}
}

func (b *memBackend) Tail(ctx context.Context) (schema.AuditEntry, bool, error) {
	if b.tailSeq == 0 {
		return schema.AuditEntry{}, false, nil
	}
	return b.entries[b.tailSeq], true, nil
}

func (b *memBackend) Commit(ctx context.Context, entry *schema.AuditEntry) error {
	b.entries[entry.ID] = *entry
	b.tailSeq = entry.ID
	return nil
}

func (b *memBackend) Walk(ctx context.Context, fn func(schema.AuditEntry) error) error {
	ids := make([]uint64, 0, len(b.entries))
	for id := range b.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := fn(b.entries[id]); err != nil {
			return err
		}
	}
	return nil
}

func newTestSecret(t *testing.T) *audit.Secret {
	t.Helper()
	secret, err := audit.NewSecret([]byte("test-audit-hmac-key-do-not-use-in-prod"))
	require.NoError(t, err)
	return secret
}

func TestChainAppendBuildsLinkedHashes(t *testing.T) {
	secret := newTestSecret(t)
	chain := audit.NewChain(newMemBackend(), secret)
	ctx := context.Background()

	first, err := chain.Append(ctx, schema.AuditEntry{TenantID: "t1", Kind: schema.KindLogic, Verdict: schema.VerdictVerified})
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.ID)
	require.Empty(t, first.PreviousHash)
	require.NotEmpty(t, first.EntryHash)
	require.NotEmpty(t, first.HMAC)

	second, err := chain.Append(ctx, schema.AuditEntry{TenantID: "t1", Kind: schema.KindLogic, Verdict: schema.VerdictRefuted})
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.ID)
	require.Equal(t, first.EntryHash, second.PreviousHash)
}

func TestChainVerifyDetectsTamperedEntry(t *testing.T) {
	secret := newTestSecret(t)
	backend := newMemBackend()
	chain := audit.NewChain(backend, secret)
	ctx := context.Background()

	_, err := chain.Append(ctx, schema.AuditEntry{TenantID: "t1", Kind: schema.KindLogic, Verdict: schema.VerdictVerified})
	require.NoError(t, err)
	second, err := chain.Append(ctx, schema.AuditEntry{TenantID: "t1", Kind: schema.KindLogic, Verdict: schema.VerdictRefuted})
	require.NoError(t, err)

	tampered := backend.entries[second.ID]
	tampered.Verdict = schema.VerdictVerified
	backend.entries[second.ID] = tampered

	broken, err := chain.Verify(ctx)
	require.NoError(t, err)
	require.NotNil(t, broken)
	require.Equal(t, second.ID, broken.EntryID)
}

func TestChainVerifyPassesOnUntamperedChain(t *testing.T) {
	secret := newTestSecret(t)
	chain := audit.NewChain(newMemBackend(), secret)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := chain.Append(ctx, schema.AuditEntry{TenantID: "t1", Kind: schema.KindLogic, Verdict: schema.VerdictVerified})
		require.NoError(t, err)
	}

	broken, err := chain.Verify(ctx)
	require.NoError(t, err)
	require.Nil(t, broken)
}

func TestChainVerifyDetectsForgedHMACWithoutSecret(t *testing.T) {
	backend := newMemBackend()
	chain := audit.NewChain(backend, newTestSecret(t))
	ctx := context.Background()

	entry, err := chain.Append(ctx, schema.AuditEntry{TenantID: "t1", Kind: schema.KindLogic, Verdict: schema.VerdictVerified})
	require.NoError(t, err)

	// Attacker rewrites the entry and its hash, but cannot produce a
	// valid HMAC without the secret.
	forged := backend.entries[entry.ID]
	forged.Verdict = schema.VerdictBlocked
	forged.HMAC = "deadbeef"
	backend.entries[entry.ID] = forged

	broken, err := chain.Verify(ctx)
	require.NoError(t, err)
	require.NotNil(t, broken)
}
