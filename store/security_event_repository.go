// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

const secEventKeyPrefix = "secevent:"
const secEventSeqKey = "secevent_seq"

// SecurityEventRepository persists policy-gate blocks and sandbox
// anomalies, keyed by an append-only sequence number the same way
// AgentRepository keys agent activity.
type SecurityEventRepository struct {
	db *DB
}

// NewSecurityEventRepository builds a SecurityEventRepository backed by db.
func NewSecurityEventRepository(db *DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Record assigns event the next sequence number and persists it under a
// single transaction, matching AgentRepository.RecordActivity's
// tail-pointer-in-the-same-txn discipline.
func (r *SecurityEventRepository) Record(ctx context.Context, event *schema.SecurityEvent) error {
	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		seq, err := r.nextSeq(txn)
		if err != nil {
			return err
		}
		event.ID = seq

		encoded, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("store: encode security event: %w", err)
		}
		if err := txn.Set(secEventKey(seq), encoded); err != nil {
			return err
		}

		seqVal := make([]byte, 8)
		binary.BigEndian.PutUint64(seqVal, seq)
		return txn.Set([]byte(secEventSeqKey), seqVal)
	})
}

func (r *SecurityEventRepository) nextSeq(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(secEventSeqKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	var last uint64
	if err := item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("store: corrupt security event sequence (%d bytes)", len(val))
		}
		last = binary.BigEndian.Uint64(val)
		return nil
	}); err != nil {
		return 0, err
	}
	return last + 1, nil
}

func secEventKey(seq uint64) []byte {
	key := make([]byte, len(secEventKeyPrefix)+8)
	copy(key, secEventKeyPrefix)
	binary.BigEndian.PutUint64(key[len(secEventKeyPrefix):], seq)
	return key
}

// ListForTenant returns every SecurityEvent recorded for tenantID, in
// ascending sequence order. tenantID "" matches pre-auth events only.
func (r *SecurityEventRepository) ListForTenant(ctx context.Context, tenantID string) ([]schema.SecurityEvent, error) {
	var events []schema.SecurityEvent
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(secEventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var event schema.SecurityEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return err
			}
			if event.TenantID == tenantID {
				events = append(events, event)
			}
		}
		return nil
	})
	return events, err
}
