// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mock implements a deterministic providers.Provider for tests,
// so gateway and engine tests don't depend on a live LLM backend.
package mock

import (
	"context"
	"errors"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Provider returns canned, deterministic translations. Fail, when set,
// makes every method return FailErr instead.
type Provider struct {
	NameValue string
	Fail      bool
	FailErr   error

	MathFn  func(query string) *schema.MathTask
	LogicFn func(query string) *schema.LogicTask
	StatsFn func(query string, columns []string) *schema.StatsTask
	FactFn  func(claim, contextText string) *schema.FactTask
}

// New builds a Provider named name with baseline canned responses.
func New(name string) *Provider {
	return &Provider{NameValue: name, FailErr: errors.New("mock: induced failure")}
}

func (p *Provider) Name() string { return p.NameValue }

func (p *Provider) TranslateMath(ctx context.Context, query string) (*schema.MathTask, error) {
	if p.Fail {
		return nil, p.FailErr
	}
	if p.MathFn != nil {
		return p.MathFn(query), nil
	}
	return &schema.MathTask{Expression: "2 + 2", ClaimedResult: 4, HasClaimed: true, Reasoning: "mock"}, nil
}

func (p *Provider) TranslateLogicDSL(ctx context.Context, query string) (*schema.LogicTask, error) {
	if p.Fail {
		return nil, p.FailErr
	}
	if p.LogicFn != nil {
		return p.LogicFn(query), nil
	}
	return &schema.LogicTask{DSL: "(ASSERT (EQ 1 1))"}, nil
}

func (p *Provider) GenerateStatsCode(ctx context.Context, query string, columns []string) (*schema.StatsTask, error) {
	if p.Fail {
		return nil, p.FailErr
	}
	if p.StatsFn != nil {
		return p.StatsFn(query, columns), nil
	}
	frameCol := "x"
	if len(columns) > 0 {
		frameCol = columns[0]
	}
	return &schema.StatsTask{Code: "mean(df." + frameCol + ")", FrameRef: "df", Columns: columns}, nil
}

func (p *Provider) VerifyFact(ctx context.Context, claim, contextText string) (*schema.FactTask, error) {
	if p.Fail {
		return nil, p.FailErr
	}
	if p.FactFn != nil {
		return p.FactFn(claim, contextText), nil
	}
	return &schema.FactTask{Claim: claim, ContextText: contextText}, nil
}
