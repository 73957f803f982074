// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package frames is the gateway's tenant-scoped registry of the data
// frames statsengine tasks run against: a caller uploads a frame's
// columnar JSON once via the control plane and later references it by
// name from a stats verification request.
package frames

import (
	"context"
	"fmt"
	"sync"
)

// Store is an in-memory, tenant-scoped map of frame name to its
// JSON-encoded column data, satisfying statsengine.FrameSource.
// Frames are process-lifetime only, mirroring cache.Cache's map+mutex
// shape but keyed by tenant rather than LRU-evicted.
type Store struct {
	mu     sync.RWMutex
	frames map[string][]byte
}

// New builds an empty Store.
func New() *Store {
	return &Store{frames: make(map[string][]byte)}
}

// frameKey scopes a frame reference to its owning tenant so one
// tenant's upload can never shadow or leak into another's.
func frameKey(tenantID, ref string) string {
	return tenantID + "\x00" + ref
}

// Put registers ref's JSON-encoded column data for tenantID, replacing
// any prior frame under the same name.
func (s *Store) Put(tenantID, ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[frameKey(tenantID, ref)] = data
}

// LoadFrame implements statsengine.FrameSource. The tenant scoping key
// is threaded through ctx by the caller via WithTenant since
// FrameSource's interface (shared with statsengine) takes only a ref.
func (s *Store) LoadFrame(ctx context.Context, ref string) ([]byte, error) {
	tenantID := tenantFromContext(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.frames[frameKey(tenantID, ref)]
	if !ok {
		return nil, fmt.Errorf("frames: no frame %q for tenant %q", ref, tenantID)
	}
	return data, nil
}

type tenantKeyType struct{}

var tenantCtxKey tenantKeyType

// WithTenant attaches tenantID to ctx for a subsequent LoadFrame call.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey, tenantID)
}

func tenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantCtxKey).(string)
	return v
}
