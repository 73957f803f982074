// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engines defines the shared Engine contract and the Dispatcher
// that routes a translated task to the engine for its Kind.
package engines

import (
	"context"
	"fmt"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Engine verifies one translated task and returns the verdict. Every
// specialist engine (math, logic, stats, fact, code, sql, image,
// reasoning) implements this single method, reading only the field of
// TranslationTask it owns.
type Engine interface {
	Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error)
}

// Dispatcher maps a request Kind to the Engine registered for it.
type Dispatcher struct {
	engines map[schema.Kind]Engine
}

// NewDispatcher builds an empty Dispatcher; register engines with Register.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{engines: make(map[schema.Kind]Engine)}
}

// Register binds an Engine to kind, overwriting any previous binding.
func (d *Dispatcher) Register(kind schema.Kind, e Engine) {
	d.engines[kind] = e
}

// Verify dispatches task to the engine registered for kind.
func (d *Dispatcher) Verify(ctx context.Context, kind schema.Kind, task schema.TranslationTask) (schema.VerificationResult, error) {
	e, ok := d.engines[kind]
	if !ok {
		return schema.VerificationResult{}, fmt.Errorf("engines: no engine registered for kind %q", kind)
	}
	return e.Verify(ctx, task)
}
