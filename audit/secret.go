// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/awnumar/memguard"
)

// initMemguard wires process-exit handling exactly once. memguard's
// CatchInterrupt installs a signal handler that purges all secure
// memory before the process dies, the same safety net
// services/orchestrator/handlers/secure_accumulator.go installs before
// touching any LockedBuffer.
var memguardOnce sync.Once

func initMemguard() {
	memguardOnce.Do(func() {
		memguard.CatchInterrupt()
	})
}

// Secret holds the audit HMAC key sealed in a memguard Enclave for the
// lifetime of the process. Unlike the short-lived token accumulator in
// secure_accumulator.go (which holds a Buffer open for the duration of
// a single streamed response), this key lives for the whole process and
// is opened into a plaintext LockedBuffer only for the few instructions
// it takes to compute one HMAC, then immediately wiped.
type Secret struct {
	enclave *memguard.Enclave
}

// NewSecret seals key inside a memguard Enclave. The caller's copy of
// key is not touched; memguard.NewEnclave takes ownership of a copy and
// the caller should discard its own reference as soon as NewSecret
// returns.
func NewSecret(key []byte) (*Secret, error) {
	initMemguard()
	if len(key) == 0 {
		return nil, errors.New("audit: secret key must not be empty")
	}
	return &Secret{enclave: memguard.NewEnclave(key)}, nil
}

// SecretFromEnv seals the key found in the named environment variable,
// the deployment path for AUDIT_SECRET_KEY.
func SecretFromEnv(envVar string) (*Secret, error) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return nil, fmt.Errorf("audit: environment variable %s is not set", envVar)
	}
	return NewSecret([]byte(raw))
}

// HMAC opens the enclave into a locked buffer just long enough to
// compute HMAC-SHA256(secret, digest), then destroys the buffer. The
// buffer never survives past this call.
func (s *Secret) HMAC(digest []byte) ([]byte, error) {
	buf, err := s.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("audit: open secret enclave: %w", err)
	}
	defer buf.Destroy()

	mac := hmac.New(sha256.New, buf.Bytes())
	mac.Write(digest)
	return mac.Sum(nil), nil
}

// Verify reports whether mac is the correct HMAC-SHA256 of digest under
// this secret, using constant-time comparison.
func (s *Secret) Verify(digest, mac []byte) (bool, error) {
	expected, err := s.HMAC(digest)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, mac), nil
}

// Close wipes the enclave's backing memory. Call during process
// shutdown; a Secret must not be used afterward.
func (s *Secret) Close() {
	memguard.Purge()
}
