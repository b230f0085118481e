// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wingedpig/gemini-desktop/internal/project"
)

// defaultRPCLogMaxAge is how long an rpc-log-*.log file is kept before the
// daily sweep removes it, absent a configured storage.logMaxAge (§4.2/§11).
const defaultRPCLogMaxAge = 30 * 24 * time.Hour

// RotationScheduler runs the daily RPC-log rotation sweep across every
// project directory, supplementing RPCLogger's at-session-start prune with
// a periodic one that also catches projects with no new session today.
type RotationScheduler struct {
	cron *cron.Cron
}

// StartRotationScheduler registers and starts a "@daily" cron job pruning
// rpc-log-*.log files older than maxAge (defaultRPCLogMaxAge if zero) from
// every directory under registry's root.
func StartRotationScheduler(registry *project.Registry, maxAge time.Duration) *RotationScheduler {
	if maxAge <= 0 {
		maxAge = defaultRPCLogMaxAge
	}

	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		removed, err := registry.PruneAllRPCLogs(maxAge)
		if err != nil {
			log.Printf("acp: rotation sweep: %v", err)
			return
		}
		log.Printf("acp: rotation sweep: removed %d rpc log file(s)", removed)
	})
	if err != nil {
		log.Printf("acp: rotation sweep: schedule: %v", err)
	}
	c.Start()

	return &RotationScheduler{cron: c}
}

// Stop halts the scheduler, letting any in-flight sweep finish.
func (r *RotationScheduler) Stop() {
	<-r.cron.Stop().Done()
}
