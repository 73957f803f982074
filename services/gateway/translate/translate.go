// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package translate turns a VerificationRequest into the strictly-typed
// TranslationTask an engine can verify: a provider call for the four
// kinds an LLM must interpret (natural-language math, logic, stats,
// fact), and a direct payload decode for the three kinds the caller
// already supplies in structured form (code, sql, image). Reasoning
// requests recurse, translating each step independently.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qwed-gateway/qwed/providers"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Translator wraps a provider Router to build TranslationTasks.
type Translator struct {
	router  *providers.Router
	timeout time.Duration
}

// New builds a Translator backed by router. A zero timeout disables the
// per-request deadline and leaves cancellation to ctx alone.
func New(router *providers.Router, timeout time.Duration) *Translator {
	return &Translator{router: router, timeout: timeout}
}

// factPayload is the client-supplied context a fact claim is checked
// against; Query carries the claim itself.
type factPayload struct {
	ContextText string `json:"context_text"`
}

// statsPayload names the data frame and columns a stats request may
// reference; the provider still generates the verification code itself.
type statsPayload struct {
	FrameRef string   `json:"frame_ref"`
	Columns  []string `json:"columns"`
}

// stepRequest is one entry of a reasoning chain's payload: a
// self-contained sub-request recursively translated the same way a
// top-level request would be.
type stepRequest struct {
	Kind    schema.Kind     `json:"kind"`
	Query   string          `json:"query"`
	Payload json.RawMessage `json:"payload"`
	Text    string          `json:"text"`
}

// Translate builds the TranslationTask for req. For the four
// LLM-mediated kinds it calls the selected Provider with failover and
// circuit-breaker protection via the Translator's Router; the prompt
// argument overrides req.Query when the self-reflection loop is retrying
// with an accumulated feedback prompt.
func (t *Translator) Translate(ctx context.Context, req *schema.VerificationRequest, prompt string) (schema.TranslationTask, error) {
	if prompt == "" {
		prompt = req.Query
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tenantDefault := ""
	if req.Tenant != nil {
		tenantDefault = req.Tenant.OrgID
	}

	switch req.Kind {
	case schema.KindNaturalLanguage:
		var task schema.MathTask
		err := t.router.WithFailover(ctx, req.PreferredProvider, tenantDefault, func(ctx context.Context, p providers.Provider) error {
			result, err := p.TranslateMath(ctx, prompt)
			if err != nil {
				return err
			}
			task = *result
			return nil
		})
		if err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: math translation failed: %w", err)
		}
		return schema.TranslationTask{Math: &task}, nil

	case schema.KindLogic:
		var task schema.LogicTask
		err := t.router.WithFailover(ctx, req.PreferredProvider, tenantDefault, func(ctx context.Context, p providers.Provider) error {
			result, err := p.TranslateLogicDSL(ctx, prompt)
			if err != nil {
				return err
			}
			task = *result
			return nil
		})
		if err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: logic translation failed: %w", err)
		}
		return schema.TranslationTask{Logic: &task}, nil

	case schema.KindStats:
		var payload statsPayload
		if len(req.Payload) > 0 {
			if err := json.Unmarshal(req.Payload, &payload); err != nil {
				return schema.TranslationTask{}, fmt.Errorf("translate: decode stats payload: %w", err)
			}
		}
		var task schema.StatsTask
		err := t.router.WithFailover(ctx, req.PreferredProvider, tenantDefault, func(ctx context.Context, p providers.Provider) error {
			result, err := p.GenerateStatsCode(ctx, prompt, payload.Columns)
			if err != nil {
				return err
			}
			task = *result
			if task.FrameRef == "" {
				task.FrameRef = payload.FrameRef
			}
			return nil
		})
		if err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: stats translation failed: %w", err)
		}
		return schema.TranslationTask{Stats: &task}, nil

	case schema.KindFact:
		var payload factPayload
		if len(req.Payload) > 0 {
			if err := json.Unmarshal(req.Payload, &payload); err != nil {
				return schema.TranslationTask{}, fmt.Errorf("translate: decode fact payload: %w", err)
			}
		}
		var task schema.FactTask
		err := t.router.WithFailover(ctx, req.PreferredProvider, tenantDefault, func(ctx context.Context, p providers.Provider) error {
			result, err := p.VerifyFact(ctx, prompt, payload.ContextText)
			if err != nil {
				return err
			}
			task = *result
			return nil
		})
		if err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: fact translation failed: %w", err)
		}
		return schema.TranslationTask{Fact: &task}, nil

	case schema.KindCode:
		var task schema.CodeTask
		if err := json.Unmarshal(req.Payload, &task); err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: decode code payload: %w", err)
		}
		return schema.TranslationTask{Code: &task}, nil

	case schema.KindSQL:
		var task schema.SqlTask
		if err := json.Unmarshal(req.Payload, &task); err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: decode sql payload: %w", err)
		}
		return schema.TranslationTask{SQL: &task}, nil

	case schema.KindImage:
		var task schema.ImageTask
		if err := json.Unmarshal(req.Payload, &task); err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: decode image payload: %w", err)
		}
		return schema.TranslationTask{Image: &task}, nil

	case schema.KindReasoning:
		return t.translateReasoning(ctx, req)

	default:
		return schema.TranslationTask{}, fmt.Errorf("translate: unsupported kind %q", req.Kind)
	}
}

// translateReasoning decodes req.Payload into an ordered list of
// sub-requests and recursively translates each into a ReasoningStep,
// each independently verifiable by reasoningengine's step dispatcher.
func (t *Translator) translateReasoning(ctx context.Context, req *schema.VerificationRequest) (schema.TranslationTask, error) {
	var steps []stepRequest
	if err := json.Unmarshal(req.Payload, &steps); err != nil {
		return schema.TranslationTask{}, fmt.Errorf("translate: decode reasoning payload: %w", err)
	}
	if len(steps) == 0 {
		return schema.TranslationTask{}, fmt.Errorf("translate: reasoning request has no steps")
	}

	result := make([]schema.ReasoningStep, len(steps))
	for i, step := range steps {
		subReq := &schema.VerificationRequest{
			Tenant:            req.Tenant,
			Kind:              step.Kind,
			Query:             step.Query,
			Payload:           step.Payload,
			PreferredProvider: req.PreferredProvider,
		}
		payload, err := t.Translate(ctx, subReq, "")
		if err != nil {
			return schema.TranslationTask{}, fmt.Errorf("translate: reasoning step %d: %w", i, err)
		}
		result[i] = schema.ReasoningStep{Kind: step.Kind, Payload: payload, Text: step.Text}
	}

	return schema.TranslationTask{Reasoning: &schema.ReasoningTask{Steps: result}}, nil
}
