// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a config file for writes and creates and reloads/validates
// it, handing the caller a fresh *Config on every successful change. Events
// are not debounced: each one triggers its own reload. Mirrors the teacher's
// binary-change watcher idiom (an fsnotify.Watcher), repointed at the config
// file instead of a service binary.
type Watcher struct {
	path    string
	loader  *Loader
	watcher *fsnotify.Watcher
	onLoad  func(*Config)
}

// NewWatcher starts watching path. onLoad is invoked with the freshly
// loaded and validated config on every write or create event; load/validation
// errors are logged and leave the previous config in place.
func NewWatcher(path string, onLoad func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, loader: NewLoader(), watcher: fsw, onLoad: onLoad}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadWithDefaults(context.Background(), w.path)
	if err != nil {
		log.Printf("config watcher: reload %s: %v", w.path, err)
		return
	}

	v := NewValidator()
	if verr := v.Validate(cfg); verr != nil {
		log.Printf("config watcher: %s failed validation, keeping previous config: %v", w.path, verr)
		return
	}

	log.Printf("config watcher: reloaded %s", w.path)
	w.onLoad(cfg)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
