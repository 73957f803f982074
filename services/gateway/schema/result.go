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

import "time"

// Verdict is the outcome a verification engine reaches for a request.
type Verdict string

const (
	VerdictVerified  Verdict = "VERIFIED"
	VerdictCorrected Verdict = "CORRECTED"
	VerdictRefuted   Verdict = "REFUTED"
	VerdictSupported Verdict = "SUPPORTED"
	VerdictFailed    Verdict = "FAILED"
	VerdictUnsafe    Verdict = "UNSAFE"
	VerdictBlocked   Verdict = "BLOCKED"
	VerdictError     Verdict = "ERROR"
	VerdictSAT       Verdict = "SAT"
	VerdictUNSAT     Verdict = "UNSAT"
	VerdictUnknown   Verdict = "UNKNOWN"
	VerdictDisputed  Verdict = "DISPUTED"
)

// VerificationResult is the outcome the control plane returns to the caller
// and appends to the audit chain.
type VerificationResult struct {
	Verdict         Verdict
	FinalAnswer     any
	Payload         any // engine-specific detail: numeric value, SAT model, violations, citations…
	ProviderUsed    string
	LatencyMS       int64
	Confidence      float64
	Correction      *Correction
	Attestation     string
	Diagnostic      string
	Cached          bool
	SandboxFallback bool // true when statsengine ran against the restricted in-process evaluator, not the isolated interpreter
}

// Correction describes a claimed-vs-computed mismatch surfaced to the
// caller, e.g. for a CORRECTED math verdict.
type Correction struct {
	Claimed  float64
	Computed float64
	Diff     float64
	Rendered string // human-readable diff, see engines/mathengine
}

// AuditEntry is one row of the append-only, hash-chained verification log.
type AuditEntry struct {
	ID            uint64
	TenantID      string
	Kind          Kind
	Fingerprint   string
	Verdict       Verdict
	LatencyMS     int64
	Timestamp     time.Time
	PreviousHash  string
	EntryHash     string
	HMAC          string
	ReflectionLog []ReflectionAttempt
}

// ReflectionAttempt records one self-reflection retry against the
// translator, logged regardless of outcome.
type ReflectionAttempt struct {
	Attempt    int
	Diagnostic string
	Provider   string
	Succeeded  bool
	TokensUsed int
}

// SecurityEventType classifies why the policy gate or sandbox raised an
// event.
type SecurityEventType string

const (
	SecurityEventBlocked         SecurityEventType = "BLOCKED"
	SecurityEventAnomaly         SecurityEventType = "ANOMALY"
	SecurityEventRotationDue     SecurityEventType = "ROTATION_DUE"
	SecurityEventSandboxFallback SecurityEventType = "SANDBOX_FALLBACK"
)

// AdmissionLayer names one of the seven policy-gate layers.
type AdmissionLayer string

const (
	LayerLength      AdmissionLayer = "length"
	LayerHeuristic   AdmissionLayer = "heuristic"
	LayerBase64      AdmissionLayer = "base64"
	LayerSemantic    AdmissionLayer = "semantic"
	LayerLexicon     AdmissionLayer = "lexicon"
	LayerMixedScript AdmissionLayer = "mixed_script"
	LayerInvisible   AdmissionLayer = "invisible"
)

// SecurityEvent records a policy-gate block or sandbox anomaly.
type SecurityEvent struct {
	ID        uint64
	TenantID  string // empty for pre-auth events
	EventType SecurityEventType
	Layer     AdmissionLayer
	Reason    string
	SourceIP  string
	Timestamp time.Time
}
