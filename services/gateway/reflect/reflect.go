// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reflect runs the gateway's bounded self-reflection loop: when
// a translated task fails to parse or type-check, the original query
// plus a diagnostic is fed back to the translator for a fresh attempt,
// up to a small retry ceiling with exponential backoff.
package reflect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/qwed-gateway/qwed/ratelimit"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// defaultMaxAttempts is the retry ceiling used when a Loop is built
// with maxAttempts <= 0; backoffs grow 0.5s, 1s, 2s and repeat their
// final value for any attempt beyond len(backoffs).
const defaultMaxAttempts = 3

var backoffs = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

// Translate is called once per attempt with the accumulated feedback
// prompt (the original query, then query+diagnostic on every retry). A
// non-nil error is treated as recoverable and retried; the loop stops
// retrying once attempts run out or ctx is done.
type Translate func(ctx context.Context, prompt string) (schema.TranslationTask, error)

var (
	tokenEncoderOnce sync.Once
	tokenEncoder     *tiktoken.Tiktoken
	tokenEncoderErr  error
)

// countTokens estimates the cost of one reflection attempt's prompt the
// same way a token-metered LLM call would be billed, using the
// cl100k_base encoding tiktoken-go ships for GPT-3.5/4-class models.
// This is the gateway's only exerciser of tiktoken-go; the teacher's
// go.mod already lists it but never calls into it in the retrieved
// slice.
func countTokens(text string) int {
	tokenEncoderOnce.Do(func() {
		tokenEncoder, tokenEncoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	if tokenEncoderErr != nil || tokenEncoder == nil {
		return 0
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}

// Loop runs the bounded self-reflection retry described by the pipeline's
// admission flow.
type Loop struct {
	limiter     *ratelimit.Limiter
	maxAttempts int
}

// New builds a Loop that consumes limiter's rate budget for each retry.
// maxAttempts <= 0 falls back to defaultMaxAttempts.
func New(limiter *ratelimit.Limiter, maxAttempts int) *Loop {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Loop{limiter: limiter, maxAttempts: maxAttempts}
}

// Outcome is what the loop produced: either a usable task or the
// diagnostic from the final failed attempt, plus the full log of every
// attempt made (including the first), for the audit chain.
type Outcome struct {
	Task       schema.TranslationTask
	Succeeded  bool
	Diagnostic string
	Attempts   []schema.ReflectionAttempt
}

// Run attempts translate once, then up to l.maxAttempts-1 more times on
// failure, feeding the prior diagnostic back into the prompt and
// backing off between attempts. Each retry (not the first attempt,
// which was already charged by the caller before Run was entered) is
// consumed against rateKey's budget; an attempt that can't get rate
// budget is logged as failed and the loop stops rather than retrying
// past the tenant's quota.
func (l *Loop) Run(ctx context.Context, rateKey, providerName, query string, translate Translate) Outcome {
	prompt := query
	var attempts []schema.ReflectionAttempt

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if attempt > 1 {
			if l.limiter != nil {
				if res := l.limiter.Allow(rateKey); !res.Allowed {
					attempts = append(attempts, schema.ReflectionAttempt{
						Attempt:    attempt,
						Diagnostic: "rate budget exhausted before retry",
						Provider:   providerName,
						Succeeded:  false,
						TokensUsed: 0,
					})
					break
				}
			}

			backoff := backoffs[min(attempt-2, len(backoffs)-1)]
			select {
			case <-ctx.Done():
				attempts = append(attempts, schema.ReflectionAttempt{
					Attempt:    attempt,
					Diagnostic: fmt.Sprintf("context cancelled during backoff: %v", ctx.Err()),
					Provider:   providerName,
					Succeeded:  false,
				})
				return Outcome{Succeeded: false, Diagnostic: ctx.Err().Error(), Attempts: attempts}
			case <-time.After(backoff):
			}
		}

		tokens := countTokens(prompt)
		task, err := translate(ctx, prompt)
		if err == nil {
			attempts = append(attempts, schema.ReflectionAttempt{
				Attempt:    attempt,
				Provider:   providerName,
				Succeeded:  true,
				TokensUsed: tokens,
			})
			return Outcome{Task: task, Succeeded: true, Attempts: attempts}
		}

		attempts = append(attempts, schema.ReflectionAttempt{
			Attempt:    attempt,
			Diagnostic: err.Error(),
			Provider:   providerName,
			Succeeded:  false,
			TokensUsed: tokens,
		})
		prompt = fmt.Sprintf("%s\n\nPrevious attempt failed: %s\nFix the translation and try again.", query, err.Error())
	}

	last := attempts[len(attempts)-1]
	return Outcome{Succeeded: false, Diagnostic: last.Diagnostic, Attempts: attempts}
}
