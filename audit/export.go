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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/klauspost/compress/zstd"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Exporter ships closed audit segments to cold storage. It never
// rewrites a hash-chain field: export is a read-only copy of entries
// already committed by Chain.Append, compressed for archival. It is
// off by default; the control plane only constructs one when an
// AUDIT_EXPORT_BUCKET is configured.
type Exporter struct {
	bucket *storage.BucketHandle
}

// NewExporter builds an Exporter that uploads to bucket.
func NewExporter(client *storage.Client, bucket string) *Exporter {
	return &Exporter{bucket: client.Bucket(bucket)}
}

// ExportSegment compresses entries (a closed, contiguous range of the
// chain, oldest first) with zstd and uploads them as one object named
// by the range's first and last sequence numbers. It does not mutate
// EntryHash, HMAC, or PreviousHash on any entry.
func (e *Exporter) ExportSegment(ctx context.Context, entries []schema.AuditEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("audit: export segment must not be empty")
	}

	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("audit: encode export segment: %w", err)
		}
	}

	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("audit: build zstd encoder: %w", err)
	}
	defer zw.Close()
	compressed := zw.EncodeAll(raw.Bytes(), nil)

	objectName := fmt.Sprintf("audit-segment-%020d-%020d-%s.jsonl.zst",
		entries[0].ID, entries[len(entries)-1].ID, time.Now().UTC().Format("20060102T150405Z"))

	w := e.bucket.Object(objectName).NewWriter(ctx)
	w.ContentType = "application/zstd"
	if _, err := w.Write(compressed); err != nil {
		w.Close()
		return fmt.Errorf("audit: upload export segment: %w", err)
	}
	return w.Close()
}
