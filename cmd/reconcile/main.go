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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/engine"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	usernameFlag := flag.String("username", "", "Filter by specific username (optional)")
	recoverFlag := flag.Duration("recover-older-than", 0, "Fail PENDING entries older than this before reconciling (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.DbService.Users(), *usernameFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	if *recoverFlag > 0 {
		report, err := services.Engine.RecoverPending(ctx, *recoverFlag)
		if err != nil {
			logger.Fatal("Failed to recover pending entries", zap.Error(err))
		}
		logger.Info("Recovered pending entries",
			zap.Duration("older_than", *recoverFlag),
			zap.Int("scanned", report.Scanned),
			zap.Int("resolved", len(report.Resolved)),
			zap.Int("skipped", report.Skipped))
	}

	common.PrintHeader("WALLET RECONCILIATION", common.DefaultWidth)

	var checked, drifted int
	for _, user := range users {
		wallets, err := services.Engine.GetWallets(ctx, user.Id)
		if engine.KindOf(err) == engine.KindNotFound {
			continue
		}
		if err != nil {
			logger.Error("Failed to list wallets", zap.String("user_id", user.Id), zap.Error(err))
			continue
		}

		for _, w := range wallets {
			r, err := services.Engine.ReconcileWallet(ctx, user.Id, w.Currency)
			if err != nil {
				logger.Error("Failed to reconcile wallet", zap.String("wallet_id", w.Id), zap.Error(err))
				continue
			}
			checked++

			mark := "✓"
			if !r.Balanced {
				mark = "✗"
				drifted++
			}
			fmt.Printf("%s %-20s %-4s balance=%s expected=%s\n",
				mark, user.Username, w.Currency, r.Wallet.Balance.String(), r.Expected.String())
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d wallets checked, %d out of balance", checked, drifted), common.DefaultWidth)

	if drifted > 0 {
		services.Close()
		loggerCleanup()
		os.Exit(1)
	}
}
