// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Kind identifies which verification pipeline a request travels through.
type Kind string

const (
	KindNaturalLanguage Kind = "natural_language"
	KindLogic           Kind = "logic"
	KindStats           Kind = "stats"
	KindFact            Kind = "fact"
	KindCode            Kind = "code"
	KindSQL             Kind = "sql"
	KindImage           Kind = "image"
	KindReasoning       Kind = "reasoning"
	KindConsensus       Kind = "consensus"
)

// ConsensusMode controls how many engines the consensus aggregator runs.
type ConsensusMode string

const (
	ConsensusSingle  ConsensusMode = "SINGLE"
	ConsensusHigh    ConsensusMode = "HIGH"
	ConsensusMaximum ConsensusMode = "MAXIMUM"
)

// VerificationRequest is the normalized, tenant-attributed unit of work the
// control plane pushes through the pipeline.
type VerificationRequest struct {
	Tenant            *TenantContext
	Kind              Kind
	Query             string          // natural-language query, when present
	Payload           json.RawMessage // kind-specific structured payload
	PreferredProvider string
	ConsensusMode     ConsensusMode
	RequestID         string
	Fingerprint       string
}

// ComputeFingerprint derives the idempotency fingerprint
// hash(tenant || kind || canonical payload), used by the cache and by
// idempotence tests. Canonical payload is the raw JSON payload plus query,
// concatenated; JSON key order in Payload is expected to already be stable
// because callers construct it from typed structs via json.Marshal.
func (r *VerificationRequest) ComputeFingerprint() string {
	h := sha256.New()
	if r.Tenant != nil {
		h.Write([]byte(r.Tenant.OrgID))
		h.Write([]byte{0})
	}
	h.Write([]byte(r.Kind))
	h.Write([]byte{0})
	h.Write([]byte(r.Query))
	h.Write([]byte{0})
	h.Write(r.Payload)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}
