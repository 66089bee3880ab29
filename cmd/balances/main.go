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

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalWallets      int
	usersWithBalances int
}

func printWallet(wallet models.Wallet, isLast bool) {
	fmt.Printf("%s %-6s: %20s (wallet: %s, updated: %s)\n",
		common.BoxPrefix(isLast),
		wallet.Currency,
		wallet.Balance.String(),
		wallet.Id[:8],
		wallet.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printUserHeader(user models.User, walletCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.FullName, user.Username)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Wallets: %d\n", walletCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user models.User, eng *engine.Engine) (int, bool, error) {
	wallets, err := eng.GetWallets(ctx, user.Id)
	if engine.KindOf(err) == engine.KindNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get wallets: %w", err)
	}

	printUserHeader(user, len(wallets))
	funded := false
	for i, w := range wallets {
		printWallet(w, i == len(wallets)-1)
		if w.Balance.IsPositive() {
			funded = true
		}
	}

	return len(wallets), funded, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	usernameFlag := flag.String("username", "", "Filter by specific username (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Initialize users based on filter
	users, err := common.InitializeUsers(ctx, services.DbService.Users(), *usernameFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++

		count, funded, err := processUser(ctx, user, services.Engine)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("username", user.Username),
				zap.Error(err))
			continue
		}
		stats.totalWallets += count
		if funded {
			stats.usersWithBalances++
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users with balances (%d wallets across %d users queried)",
		stats.usersWithBalances, stats.totalWallets, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("total_wallets", stats.totalWallets))
}
