// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/audit"
	"github.com/qwed-gateway/qwed/cache"
	"github.com/qwed-gateway/qwed/consensus"
	"github.com/qwed-gateway/qwed/dsl/mocksolver"
	"github.com/qwed-gateway/qwed/engines"
	"github.com/qwed-gateway/qwed/engines/logicengine"
	"github.com/qwed-gateway/qwed/engines/mathengine"
	"github.com/qwed-gateway/qwed/providers"
	"github.com/qwed-gateway/qwed/providers/mock"
	"github.com/qwed-gateway/qwed/ratelimit"
	"github.com/qwed-gateway/qwed/services/gateway/pipeline"
	"github.com/qwed-gateway/qwed/services/gateway/reflect"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/services/gateway/translate"
)

// memAuditBackend is a minimal in-memory audit.Backend for pipeline tests.
type memAuditBackend struct {
	entries []schema.AuditEntry
}

func (b *memAuditBackend) Tail(ctx context.Context) (schema.AuditEntry, bool, error) {
	if len(b.entries) == 0 {
		return schema.AuditEntry{}, false, nil
	}
	return b.entries[len(b.entries)-1], true, nil
}

func (b *memAuditBackend) Commit(ctx context.Context, entry *schema.AuditEntry) error {
	b.entries = append(b.entries, *entry)
	return nil
}

func (b *memAuditBackend) Walk(ctx context.Context, fn func(schema.AuditEntry) error) error {
	for _, e := range b.entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()

	router := providers.NewRouter("mock", 0)
	router.Register(mock.New("mock"))

	dispatcher := engines.NewDispatcher()
	dispatcher.Register(schema.KindNaturalLanguage, mathengine.New())
	dispatcher.Register(schema.KindLogic, logicengine.New(mocksolver.New()))

	secret, err := audit.NewSecret([]byte("pipeline-test-secret-key-value"))
	require.NoError(t, err)
	chain := audit.NewChain(&memAuditBackend{}, secret)

	p, err := pipeline.New(pipeline.Config{
		Translator: translate.New(router, 0),
		Reflector:  reflect.New(ratelimit.New(ratelimit.DefaultConfig()), 0),
		Dispatcher: dispatcher,
		Aggregator: consensus.New(),
		Cache:      cache.New(),
		Chain:      chain,
	})
	require.NoError(t, err)
	return p
}

func testTenant() *schema.TenantContext {
	return &schema.TenantContext{OrgID: "org1", KeyFingerprint: "fp1"}
}

func TestPipelineVerifiesMathRequestAndAppendsAudit(t *testing.T) {
	p := newTestPipeline(t)
	result, entry, err := p.Run(context.Background(), &schema.VerificationRequest{
		Tenant: testTenant(),
		Kind:   schema.KindNaturalLanguage,
		Query:  "what is 2 + 2",
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
	require.NotNil(t, entry)
	require.Equal(t, schema.VerdictVerified, entry.Verdict)
}

func TestPipelineCachesRepeatedRequest(t *testing.T) {
	p := newTestPipeline(t)
	req := &schema.VerificationRequest{
		Tenant: testTenant(),
		Kind:   schema.KindNaturalLanguage,
		Query:  "what is 2 + 2",
	}

	first, _, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Cached)

	req2 := &schema.VerificationRequest{Tenant: testTenant(), Kind: schema.KindNaturalLanguage, Query: "what is 2 + 2"}
	second, _, err := p.Run(context.Background(), req2)
	require.NoError(t, err)
	require.True(t, second.Cached)
}

func TestPipelineConsensusHighModeAggregatesTwoClaims(t *testing.T) {
	p := newTestPipeline(t)
	result, entry, err := p.Run(context.Background(), &schema.VerificationRequest{
		Tenant:        testTenant(),
		Kind:          schema.KindConsensus,
		ConsensusMode: schema.ConsensusHigh,
		Payload: []byte(`[
			{"kind": "natural_language", "query": "what is 2 + 2"},
			{"kind": "logic", "query": "is 1 equal to 1"}
		]`),
	})
	require.NoError(t, err)
	require.Contains(t, []schema.Verdict{schema.VerdictVerified, schema.VerdictSAT, schema.VerdictDisputed}, result.Verdict)
	require.NotNil(t, entry)
}
