// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers defines the gateway's LLM provider capability
// interface and the router that selects among configured providers with
// failover and a per-provider circuit breaker.
package providers

import (
	"context"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Provider is the capability interface every translator backend
// implements: the four spec-defined translation operations, generalized
// from the teacher's single-method llm.LLMClient interface.
type Provider interface {
	// Name identifies this provider for router bookkeeping and logging
	// ("primary", "secondary", ...).
	Name() string

	TranslateMath(ctx context.Context, query string) (*schema.MathTask, error)
	TranslateLogicDSL(ctx context.Context, query string) (*schema.LogicTask, error)
	GenerateStatsCode(ctx context.Context, query string, columns []string) (*schema.StatsTask, error)
	VerifyFact(ctx context.Context, claim, contextText string) (*schema.FactTask, error)
}
