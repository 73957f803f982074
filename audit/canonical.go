// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit is the gateway's append-only, hash-chained verification
// log: every completed request is recorded as an AuditEntry whose hash
// covers the previous entry's hash, so any tampering with a past entry
// breaks every link after it.
package audit

import (
	"encoding/json"
	"time"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// canonicalFields mirrors schema.AuditEntry's hash-relevant fields in a
// fixed declaration order, excluding EntryHash and HMAC themselves
// (which are derived from this encoding, not part of it) and ID (which
// is a storage-layer detail, not a claim about what happened).
type canonicalFields struct {
	TenantID      string
	Kind          schema.Kind
	Fingerprint   string
	Verdict       schema.Verdict
	LatencyMS     int64
	Timestamp     time.Time
	PreviousHash  string
	ReflectionLog []schema.ReflectionAttempt
}

// canonicalBytes deterministically encodes entry's hash-relevant fields.
// encoding/json already serializes a struct's fields in declaration
// order (it never reorders them the way map-key encoding would), so a
// fixed-field struct is sufficient to make this a stable encoding
// across process restarts and Go versions without needing a
// canonicalization library the example pack does not carry.
func canonicalBytes(entry *schema.AuditEntry) ([]byte, error) {
	return json.Marshal(canonicalFields{
		TenantID:      entry.TenantID,
		Kind:          entry.Kind,
		Fingerprint:   entry.Fingerprint,
		Verdict:       entry.Verdict,
		LatencyMS:     entry.LatencyMS,
		Timestamp:     entry.Timestamp,
		PreviousHash:  entry.PreviousHash,
		ReflectionLog: entry.ReflectionLog,
	})
}
