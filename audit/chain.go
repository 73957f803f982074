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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qwed-gateway/qwed/policy"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// genesisHash is PreviousHash for the first entry in a chain.
const genesisHash = ""

// Backend persists committed entries and reports the current tail.
// store.AuditRepository implements this against BadgerDB, advancing a
// sequence counter in the same transaction that writes the entry so
// the write is atomic with the durability guarantee.
type Backend interface {
	// Tail returns the most recently committed entry, or ok=false if
	// the chain is empty.
	Tail(ctx context.Context) (entry schema.AuditEntry, ok bool, err error)

	// Commit durably writes entry, which already carries its final
	// ID, PreviousHash, EntryHash and HMAC.
	Commit(ctx context.Context, entry *schema.AuditEntry) error

	// Walk calls fn for every committed entry in ascending ID order,
	// stopping and returning fn's error if it returns non-nil.
	Walk(ctx context.Context, fn func(schema.AuditEntry) error) error
}

// Chain is the append-only, hash-chained, HMAC-authenticated audit log
// described by the gateway's admission pipeline: every entry's hash
// covers the previous entry's hash, and every entry is additionally
// MAC'd under a process-lifetime secret so an attacker with filesystem
// access but not the secret cannot forge a replacement link.
//
// Thread Safety: Append serializes all writers behind a single tail
// lock, matching the teacher's pattern of a single in-process mutex
// guarding a sequential append path; Backend.Commit supplies the
// crash-consistency guarantee (entry + sequence counter land together
// or not at all), the mutex supplies the ordering guarantee.
type Chain struct {
	backend Backend
	secret  *Secret

	mu       sync.Mutex
	loaded   bool
	tailSeq  uint64
	tailHash string
}

// NewChain builds a Chain over backend, authenticating entries with secret.
func NewChain(backend Backend, secret *Secret) *Chain {
	return &Chain{backend: backend, secret: secret}
}

// Backend returns the Chain's underlying Backend, for callers that
// need to read the chain (history listing, live tailing) without
// going through Append or Verify.
func (c *Chain) Backend() Backend {
	return c.backend
}

// loadTail populates the in-memory tail cache from the backend on first
// use, so a restarted process resumes the chain instead of starting a
// new one. Callers must hold mu.
func (c *Chain) loadTail(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	tail, ok, err := c.backend.Tail(ctx)
	if err != nil {
		return fmt.Errorf("audit: load chain tail: %w", err)
	}
	if ok {
		c.tailSeq = tail.ID
		c.tailHash = tail.EntryHash
	} else {
		c.tailSeq = 0
		c.tailHash = genesisHash
	}
	c.loaded = true
	return nil
}

// Append redacts entry's payload-bearing fields via policy.Redact
// before it is ever serialized, computes its position in the hash
// chain, signs it, and commits it through the backend. entry's ID,
// PreviousHash, EntryHash and HMAC are assigned by Append and must be
// zero-valued on input.
func (c *Chain) Append(ctx context.Context, entry schema.AuditEntry) (schema.AuditEntry, error) {
	for i, attempt := range entry.ReflectionLog {
		entry.ReflectionLog[i].Diagnostic = policy.Redact(attempt.Diagnostic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadTail(ctx); err != nil {
		return schema.AuditEntry{}, err
	}

	entry.ID = c.tailSeq + 1
	entry.PreviousHash = c.tailHash
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	digest, err := canonicalBytes(&entry)
	if err != nil {
		return schema.AuditEntry{}, fmt.Errorf("audit: encode entry: %w", err)
	}
	sum := sha256.Sum256(append([]byte(entry.PreviousHash), digest...))
	entry.EntryHash = hex.EncodeToString(sum[:])

	mac, err := c.secret.HMAC(sum[:])
	if err != nil {
		return schema.AuditEntry{}, fmt.Errorf("audit: sign entry: %w", err)
	}
	entry.HMAC = hex.EncodeToString(mac)

	if err := c.backend.Commit(ctx, &entry); err != nil {
		return schema.AuditEntry{}, fmt.Errorf("audit: commit entry: %w", err)
	}

	c.tailSeq = entry.ID
	c.tailHash = entry.EntryHash
	return entry, nil
}

// BrokenLink describes the first point of failure Verify finds while
// walking the chain.
type BrokenLink struct {
	EntryID uint64
	Reason  string
}

func (b BrokenLink) Error() string {
	return fmt.Sprintf("audit: entry %d: %s", b.EntryID, b.Reason)
}

// Verify walks the entire chain in order, recomputing each entry's hash
// and HMAC and comparing against the stored values. It returns the
// first broken link found, or nil if the chain is intact end to end.
func (c *Chain) Verify(ctx context.Context) (*BrokenLink, error) {
	var previousHash string
	first := true

	err := c.backend.Walk(ctx, func(entry schema.AuditEntry) error {
		if first {
			previousHash = entry.PreviousHash
			first = false
		}
		if entry.PreviousHash != previousHash {
			return chainBreak{BrokenLink{EntryID: entry.ID, Reason: "previous_hash does not match prior entry's entry_hash"}}
		}

		digest, err := canonicalBytes(&entry)
		if err != nil {
			return fmt.Errorf("audit: encode entry %d: %w", entry.ID, err)
		}
		sum := sha256.Sum256(append([]byte(entry.PreviousHash), digest...))
		wantHash := hex.EncodeToString(sum[:])
		if wantHash != entry.EntryHash {
			return chainBreak{BrokenLink{EntryID: entry.ID, Reason: "entry_hash does not match recomputed hash"}}
		}

		mac, err := hex.DecodeString(entry.HMAC)
		if err != nil {
			return chainBreak{BrokenLink{EntryID: entry.ID, Reason: "hmac is not valid hex"}}
		}
		ok, err := c.secret.Verify(sum[:], mac)
		if err != nil {
			return fmt.Errorf("audit: verify hmac for entry %d: %w", entry.ID, err)
		}
		if !ok {
			return chainBreak{BrokenLink{EntryID: entry.ID, Reason: "hmac does not match secret"}}
		}

		previousHash = entry.EntryHash
		return nil
	})

	var brk chainBreak
	if errors.As(err, &brk) {
		link := brk.BrokenLink
		return &link, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// chainBreak wraps a BrokenLink so Walk's early-return carries
// structured detail through the generic error path without Verify
// having to sentinel-match strings.
type chainBreak struct {
	BrokenLink
}

func (c chainBreak) Error() string { return c.BrokenLink.Error() }
