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

const agentKeyPrefix = "agent:record:"
const agentActivityKeyPrefix = "agent:activity:"
const agentActivitySeqKey = "agent:activityseq"

// AgentRepository persists registered agents and their verification
// activity, mirroring TenantRepository's and AuditRepository's
// prefix-keyed BadgerDB shape.
type AgentRepository struct {
	db *DB
}

// NewAgentRepository builds an AgentRepository backed by db.
func NewAgentRepository(db *DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// Register persists agent, keyed by its ID.
func (r *AgentRepository) Register(ctx context.Context, agent *schema.Agent) error {
	encoded, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("store: encode agent: %w", err)
	}
	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(agentKeyPrefix+agent.ID), encoded)
	})
}

// Get returns the agent registered under id, if any.
func (r *AgentRepository) Get(ctx context.Context, id string) (*schema.Agent, bool, error) {
	var agent *schema.Agent
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(agentKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			agent = &schema.Agent{}
			return json.Unmarshal(val, agent)
		})
	})
	if err != nil {
		return nil, false, err
	}
	if agent == nil {
		return nil, false, nil
	}
	return agent, true, nil
}

// RecordActivity appends one AgentActivity row, assigning it the next
// sequence number under a single transaction, matching
// AuditRepository.Commit's tail-pointer-in-the-same-txn discipline.
func (r *AgentRepository) RecordActivity(ctx context.Context, activity *schema.AgentActivity) error {
	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		seq, err := r.nextActivitySeq(txn)
		if err != nil {
			return err
		}
		activity.ID = seq

		encoded, err := json.Marshal(activity)
		if err != nil {
			return fmt.Errorf("store: encode agent activity: %w", err)
		}
		if err := txn.Set(agentActivityKey(seq), encoded); err != nil {
			return err
		}

		seqVal := make([]byte, 8)
		binary.BigEndian.PutUint64(seqVal, seq)
		return txn.Set([]byte(agentActivitySeqKey), seqVal)
	})
}

func (r *AgentRepository) nextActivitySeq(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(agentActivitySeqKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	var last uint64
	if err := item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("store: corrupt agent activity sequence (%d bytes)", len(val))
		}
		last = binary.BigEndian.Uint64(val)
		return nil
	}); err != nil {
		return 0, err
	}
	return last + 1, nil
}

func agentActivityKey(seq uint64) []byte {
	key := make([]byte, len(agentActivityKeyPrefix)+8)
	copy(key, agentActivityKeyPrefix)
	binary.BigEndian.PutUint64(key[len(agentActivityKeyPrefix):], seq)
	return key
}

// ListActivityForAgent returns every AgentActivity recorded for
// agentID, in ascending sequence order.
func (r *AgentRepository) ListActivityForAgent(ctx context.Context, agentID string) ([]schema.AgentActivity, error) {
	var activities []schema.AgentActivity
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(agentActivityKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var activity schema.AgentActivity
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &activity)
			}); err != nil {
				return err
			}
			if activity.AgentID == agentID {
				activities = append(activities, activity)
			}
		}
		return nil
	})
	return activities, err
}
