/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sweeper periodically resolves transaction log entries abandoned in
// PENDING by an interrupted process.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-ledger-go/internal/engine"

	"go.uber.org/zap"
)

// Recoverer resolves stale PENDING entries. *engine.Engine implements it.
type Recoverer interface {
	RecoverPending(ctx context.Context, olderThan time.Duration) (*engine.RecoveryReport, error)
}

type Config struct {
	Recoverer  Recoverer
	Interval   time.Duration
	PendingAge time.Duration
}

type PendingSweeper struct {
	recoverer  Recoverer
	interval   time.Duration
	pendingAge time.Duration

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewPendingSweeper creates a sweeper; Start runs it.
func NewPendingSweeper(cfg Config) (*PendingSweeper, error) {
	if cfg.Recoverer == nil {
		return nil, fmt.Errorf("sweeper requires a recoverer")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %v", cfg.Interval)
	}
	if cfg.PendingAge <= 0 {
		return nil, fmt.Errorf("pending age must be positive, got %v", cfg.PendingAge)
	}
	return &PendingSweeper{
		recoverer:  cfg.Recoverer,
		interval:   cfg.Interval,
		pendingAge: cfg.PendingAge,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// Start sweeps once immediately and then on every interval until Stop is
// called or ctx is done. Only the first call starts the loop.
func (s *PendingSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	zap.L().Info("Starting pending sweeper",
		zap.Duration("interval", s.interval),
		zap.Duration("pending_age", s.pendingAge))

	go s.pollLoop(ctx)
}

// Stop gracefully stops the sweeper and waits for an in-flight sweep.
func (s *PendingSweeper) Stop() {
	zap.L().Info("Stopping pending sweeper")
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	if !s.started {
		// The loop never ran; nothing will close doneChan
		s.started = true
		close(s.doneChan)
	}
	s.mu.Unlock()

	<-s.doneChan
	zap.L().Info("Pending sweeper stopped")
}

// Done is closed once the loop has exited.
func (s *PendingSweeper) Done() <-chan struct{} {
	return s.doneChan
}

func (s *PendingSweeper) pollLoop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one recovery pass. Errors are logged and retried on the next tick.
func (s *PendingSweeper) Sweep(ctx context.Context) {
	report, err := s.recoverer.RecoverPending(ctx, s.pendingAge)
	if err != nil {
		zap.L().Error("Pending sweep failed", zap.Error(err))
		return
	}
	if len(report.Resolved) == 0 && report.Skipped == 0 {
		zap.L().Debug("Pending sweep found nothing")
		return
	}
	zap.L().Info("Pending sweep completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("resolved", len(report.Resolved)),
		zap.Int("skipped", report.Skipped))
}
