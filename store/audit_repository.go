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

// auditKeyPrefix namespaces audit entry keys. Entries are keyed by a
// big-endian-encoded sequence number so BadgerDB's key-ordered iterator
// walks the chain in commit order without a separate index.
const auditKeyPrefix = "audit:entry:"

const auditTailKey = "audit:tail"

// AuditRepository persists the hash-chained audit log and satisfies
// audit.Backend.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository builds an AuditRepository backed by db.
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func auditEntryKey(seq uint64) []byte {
	key := make([]byte, len(auditKeyPrefix)+8)
	copy(key, auditKeyPrefix)
	binary.BigEndian.PutUint64(key[len(auditKeyPrefix):], seq)
	return key
}

// Tail returns the most recently committed entry.
func (r *AuditRepository) Tail(ctx context.Context) (schema.AuditEntry, bool, error) {
	var seq uint64
	found := false

	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(auditTailKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("store: corrupt audit tail pointer (%d bytes)", len(val))
			}
			seq = binary.BigEndian.Uint64(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return schema.AuditEntry{}, false, err
	}
	if !found {
		return schema.AuditEntry{}, false, nil
	}

	entry, err := r.get(ctx, seq)
	if err != nil {
		return schema.AuditEntry{}, false, err
	}
	return entry, true, nil
}

func (r *AuditRepository) get(ctx context.Context, seq uint64) (schema.AuditEntry, error) {
	var entry schema.AuditEntry
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(auditEntryKey(seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	return entry, err
}

// Commit writes entry and advances the tail pointer to entry.ID inside
// a single BadgerDB transaction, so a crash between the two never
// leaves the tail pointer ahead of the entries it points to.
func (r *AuditRepository) Commit(ctx context.Context, entry *schema.AuditEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: encode audit entry: %w", err)
	}

	tailVal := make([]byte, 8)
	binary.BigEndian.PutUint64(tailVal, entry.ID)

	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(auditEntryKey(entry.ID), encoded); err != nil {
			return err
		}
		return txn.Set([]byte(auditTailKey), tailVal)
	})
}

// Walk calls fn for every committed entry in ascending sequence order.
func (r *AuditRepository) Walk(ctx context.Context, fn func(schema.AuditEntry) error) error {
	return r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(auditKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var entry schema.AuditEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}
