// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events an editor save produces.
const DefaultWatchDebounce = 150 * time.Millisecond

// Change is a reload result delivered by Watch.
type Change struct {
	Config *Config
	Err    error
}

// Watch reloads path whenever it changes and delivers the result on the
// returned channel until ctx is done. The parent directory is watched, so
// editors that save by renaming a temp file are seen too.
//
// The channel is closed when watching stops.
func Watch(ctx context.Context, path string, debounce time.Duration) (<-chan Change, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan Change, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					timer.Reset(debounce)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if !deliver(ctx, out, Change{Err: err}) {
					return
				}

			case <-timer.C:
				cfg, err := LoadFromPath(abs)
				if !deliver(ctx, out, Change{Config: cfg, Err: err}) {
					return
				}
			}
		}
	}()

	return out, nil
}

// deliver sends c unless ctx ends first, replacing an undelivered stale
// change so the consumer always sees the latest file.
func deliver(ctx context.Context, out chan Change, c Change) bool {
	select {
	case <-out:
	default:
	}
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
