// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/qwed-gateway/qwed/pkg/logging"
)

// WatchPolicyPatterns watches dir for YAML pattern file writes and calls
// reload after a short debounce, so an operator can update the lexicon or
// regex classification patterns without restarting the gateway. It blocks
// until ctx is cancelled.
func WatchPolicyPatterns(ctx context.Context, dir string, log *logging.Logger, reload func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			if err := reload(); err != nil {
				log.Warn("policy pattern reload failed", "error", err, "dir", dir)
				continue
			}
			log.Info("policy patterns reloaded", "dir", dir)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("policy pattern watcher error", "error", err)
		}
	}
}
