// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline is the gateway's control plane: the single
// composition root that strings admission, translation, self-reflection,
// engine dispatch, optional consensus, caching, and audit logging into
// one request flow. It is the control-plane analogue of
// services/orchestrator's Service — a small struct of dependencies and a
// single Run method — generalized to the gateway's multi-engine shape.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/qwed-gateway/qwed/audit"
	"github.com/qwed-gateway/qwed/cache"
	"github.com/qwed-gateway/qwed/consensus"
	"github.com/qwed-gateway/qwed/engines"
	"github.com/qwed-gateway/qwed/frames"
	"github.com/qwed-gateway/qwed/policy"
	"github.com/qwed-gateway/qwed/services/gateway/reflect"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
	"github.com/qwed-gateway/qwed/services/gateway/translate"
	"github.com/qwed-gateway/qwed/store"
)

// cacheableKinds are the deterministic engines whose verdict depends
// only on their input, never on a live provider or external knowledge
// base — per §4.11, fact and image results are never cached at this
// layer.
var cacheableKinds = map[schema.Kind]bool{
	schema.KindNaturalLanguage: true,
	schema.KindLogic:           true,
	schema.KindStats:           true,
	schema.KindCode:            true,
	schema.KindSQL:             true,
}

// llmTranslatedKinds are the kinds whose TranslationTask comes from a
// provider call and can therefore fail with a recoverable parse/type
// error worth retrying through the self-reflection loop.
var llmTranslatedKinds = map[schema.Kind]bool{
	schema.KindNaturalLanguage: true,
	schema.KindLogic:           true,
	schema.KindStats:           true,
	schema.KindFact:            true,
}

// Pipeline wires every stage of the request flow together.
type Pipeline struct {
	policy         *policy.Engine
	translator     *translate.Translator
	reflector      *reflect.Loop
	dispatcher     *engines.Dispatcher
	aggregator     *consensus.Aggregator
	cache          *cache.Cache
	chain          *audit.Chain
	securityEvents *store.SecurityEventRepository
}

// Config names every dependency Pipeline composes.
type Config struct {
	Policy         *policy.Engine
	Translator     *translate.Translator
	Reflector      *reflect.Loop
	Dispatcher     *engines.Dispatcher
	Aggregator     *consensus.Aggregator
	Cache          *cache.Cache
	Chain          *audit.Chain
	SecurityEvents *store.SecurityEventRepository
}

// New builds a Pipeline from cfg. Policy, Cache, Chain, and SecurityEvents
// may be nil to disable that stage (used by tests exercising one stage in
// isolation); Translator, Reflector, Dispatcher, and Aggregator are
// required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Translator == nil || cfg.Reflector == nil || cfg.Dispatcher == nil || cfg.Aggregator == nil {
		return nil, fmt.Errorf("pipeline: translator, reflector, dispatcher, and aggregator are required")
	}
	return &Pipeline{
		policy:         cfg.Policy,
		translator:     cfg.Translator,
		reflector:      cfg.Reflector,
		dispatcher:     cfg.Dispatcher,
		aggregator:     cfg.Aggregator,
		cache:          cfg.Cache,
		chain:          cfg.Chain,
		securityEvents: cfg.SecurityEvents,
	}, nil
}

// stepRequest mirrors translate's own decoding of a consensus/reasoning
// sub-request, duplicated here (rather than exported from translate)
// because the pipeline needs the Kind before it can decide how many
// verifiers a consensus mode gets to run, not merely to decode a task.
type stepRequest struct {
	Kind              schema.Kind     `json:"kind"`
	Query             string          `json:"query"`
	Payload           json.RawMessage `json:"payload"`
	PreferredProvider string          `json:"preferred_provider"`
}

// Run executes req through the full pipeline and returns the verdict to
// return to the caller, plus the entry appended to the audit chain (nil
// if no Chain was configured). A non-nil error means the request could
// not be completed at all (undecodable consensus payload, chain append
// failure); every
// other terminal outcome — FAILED, UNSAFE, DISPUTED, BLOCKED — comes
// back as a populated VerificationResult with a nil error, matching the
// state machine's distinction between "request rejected" and "request
// admitted but its claim did not verify."
func (p *Pipeline) Run(ctx context.Context, req *schema.VerificationRequest) (schema.VerificationResult, *schema.AuditEntry, error) {
	start := time.Now()

	if p.policy != nil && req.Query != "" {
		if decision := p.policy.Admit(req.Query); !decision.Allowed {
			result := schema.VerificationResult{
				Verdict:    schema.VerdictBlocked,
				Diagnostic: fmt.Sprintf("%s: %s", decision.Layer, decision.Reason),
			}
			p.recordSecurityEvent(ctx, req, schema.SecurityEvent{
				TenantID:  tenantIDOf(req),
				EventType: schema.SecurityEventBlocked,
				Layer:     decision.Layer,
				Reason:    decision.Reason,
			})
			entry, err := p.appendAudit(ctx, req, result, nil, start)
			return result, entry, err
		}
	}

	if req.Fingerprint == "" {
		req.Fingerprint = req.ComputeFingerprint()
	}

	cacheKey := cache.Key{}
	if p.cache != nil && cacheableKinds[req.Kind] && req.Tenant != nil {
		cacheKey = cache.Key{TenantID: req.Tenant.OrgID, Fingerprint: req.Fingerprint}
		if cached, ok := p.cache.Get(cacheKey); ok {
			entry, err := p.appendAudit(ctx, req, cached, nil, start)
			return cached, entry, err
		}
	}

	var result schema.VerificationResult
	var attempts []schema.ReflectionAttempt

	if req.Kind == schema.KindConsensus {
		var err error
		result, attempts, err = p.runConsensus(ctx, req)
		if err != nil {
			return schema.VerificationResult{}, nil, err
		}
	} else {
		result, attempts = p.verifyOne(ctx, req)
	}

	if result.SandboxFallback {
		p.recordSecurityEvent(ctx, req, schema.SecurityEvent{
			TenantID:  tenantIDOf(req),
			EventType: schema.SecurityEventSandboxFallback,
			Reason:    "sandbox isolation primitives unavailable, ran against restricted in-process evaluator",
		})
	}

	result.LatencyMS = time.Since(start).Milliseconds()

	if p.cache != nil && cacheableKinds[req.Kind] && req.Tenant != nil && isCacheableVerdict(result.Verdict) {
		p.cache.Put(cacheKey, result)
	}

	entry, err := p.appendAudit(ctx, req, result, attempts, start)
	return result, entry, err
}

// isCacheableVerdict excludes terminal-but-transient outcomes (a
// provider-translation FAILED today might succeed once the provider
// recovers) from being memoized as if they were permanent.
func isCacheableVerdict(v schema.Verdict) bool {
	switch v {
	case schema.VerdictFailed, schema.VerdictError:
		return false
	default:
		return true
	}
}

// verifyOne translates and dispatches a single, non-consensus request,
// running the self-reflection loop when the kind is LLM-translated and
// the first translation attempt fails.
func (p *Pipeline) verifyOne(ctx context.Context, req *schema.VerificationRequest) (schema.VerificationResult, []schema.ReflectionAttempt) {
	task, attempts, diagErr := p.translateWithReflection(ctx, req)
	if diagErr != nil {
		return schema.VerificationResult{Verdict: schema.VerdictFailed, Diagnostic: diagErr.Error()}, attempts
	}

	if req.Tenant != nil {
		ctx = frames.WithTenant(ctx, req.Tenant.OrgID)
	}
	result, err := p.dispatcher.Verify(ctx, req.Kind, task)
	if err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: err.Error()}, attempts
	}
	return result, attempts
}

// translateWithReflection attempts req's translation, retrying through
// the self-reflection loop for kinds whose task comes from a provider
// call. Kinds translated by direct payload decode (code, sql, image)
// have nothing a retry could fix, so they are never reflected.
func (p *Pipeline) translateWithReflection(ctx context.Context, req *schema.VerificationRequest) (schema.TranslationTask, []schema.ReflectionAttempt, error) {
	task, err := p.translator.Translate(ctx, req, "")
	if err == nil {
		return task, nil, nil
	}
	if !llmTranslatedKinds[req.Kind] {
		return schema.TranslationTask{}, nil, err
	}

	rateKey := "anonymous"
	providerName := req.PreferredProvider
	if req.Tenant != nil {
		rateKey = req.Tenant.KeyFingerprint
	}

	outcome := p.reflector.Run(ctx, rateKey, providerName, req.Query, func(ctx context.Context, prompt string) (schema.TranslationTask, error) {
		return p.translator.Translate(ctx, req, prompt)
	})
	if !outcome.Succeeded {
		return schema.TranslationTask{}, outcome.Attempts, fmt.Errorf("pipeline: translation failed after reflection: %s", outcome.Diagnostic)
	}
	return outcome.Task, outcome.Attempts, nil
}

// runConsensus decodes a consensus request's sub-claims and runs each
// independently through translation and dispatch, then aggregates their
// verdicts via the consensus.Aggregator under req.ConsensusMode.
func (p *Pipeline) runConsensus(ctx context.Context, req *schema.VerificationRequest) (schema.VerificationResult, []schema.ReflectionAttempt, error) {
	var steps []stepRequest
	if err := json.Unmarshal(req.Payload, &steps); err != nil {
		return schema.VerificationResult{}, nil, fmt.Errorf("pipeline: decode consensus payload: %w", err)
	}
	if len(steps) == 0 {
		return schema.VerificationResult{}, nil, fmt.Errorf("pipeline: consensus request has no sub-claims")
	}

	var allAttempts []schema.ReflectionAttempt
	verifiers := make([]consensus.Verifier, len(steps))
	for i, step := range steps {
		step := step
		subReq := &schema.VerificationRequest{
			Tenant:            req.Tenant,
			Kind:              step.Kind,
			Query:             step.Query,
			Payload:           step.Payload,
			PreferredProvider: step.PreferredProvider,
		}
		verifiers[i] = func(ctx context.Context) (schema.VerificationResult, error) {
			result, attempts := p.verifyOne(ctx, subReq)
			allAttempts = append(allAttempts, attempts...)
			return result, nil
		}
	}

	mode := req.ConsensusMode
	if mode == "" {
		mode = schema.ConsensusSingle
	}
	result, err := p.aggregator.Run(ctx, mode, verifiers)
	return result, allAttempts, err
}

// tenantIDOf returns req's org ID, or "" for a pre-auth request.
func tenantIDOf(req *schema.VerificationRequest) string {
	if req.Tenant == nil {
		return ""
	}
	return req.Tenant.OrgID
}

// recordSecurityEvent persists event through securityEvents, when
// configured, logging rather than failing the request on a store error —
// a gateway's own audit trail must never block the response it is
// auditing.
func (p *Pipeline) recordSecurityEvent(ctx context.Context, req *schema.VerificationRequest, event schema.SecurityEvent) {
	if p.securityEvents == nil {
		return
	}
	event.Timestamp = time.Now()
	if err := p.securityEvents.Record(ctx, &event); err != nil {
		slog.Error("pipeline: record security event failed", "error", err, "kind", req.Kind, "event_type", event.EventType)
	}
}

// appendAudit records the outcome to the audit chain, when configured.
func (p *Pipeline) appendAudit(ctx context.Context, req *schema.VerificationRequest, result schema.VerificationResult, attempts []schema.ReflectionAttempt, start time.Time) (*schema.AuditEntry, error) {
	if p.chain == nil {
		return nil, nil
	}
	tenantID := ""
	if req.Tenant != nil {
		tenantID = req.Tenant.OrgID
	}
	entry, err := p.chain.Append(ctx, schema.AuditEntry{
		TenantID:      tenantID,
		Kind:          req.Kind,
		Fingerprint:   req.Fingerprint,
		Verdict:       result.Verdict,
		LatencyMS:     time.Since(start).Milliseconds(),
		ReflectionLog: attempts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: append audit entry: %w", err)
	}
	return &entry, nil
}
