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
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

// openWallets makes sure every user holds a wallet in every supported currency
func openWallets(ctx context.Context, services *common.Services) {
	users, err := services.DbService.Users().List(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read users from database", zap.Error(err))
	}

	var totalWallets, failedUsers int
	var failedUsernames []string

	for _, user := range users {
		zap.L().Info("Processing user",
			zap.String("id", user.Id),
			zap.String("username", user.Username))

		wallets, err := services.Engine.OpenWallets(ctx, user.Id)
		if err != nil {
			zap.L().Error("Failed to open wallets",
				zap.String("user_id", user.Id),
				zap.Error(err))
			failedUsers++
			failedUsernames = append(failedUsernames, user.Username)
			continue
		}
		totalWallets += len(wallets)
	}

	// Log summary
	if failedUsers > 0 {
		zap.L().Warn("Wallet setup completed with some failures",
			zap.Int("total_wallets", totalWallets),
			zap.Int("failed_users", failedUsers),
			zap.Strings("failed_usernames", failedUsernames))
	} else {
		zap.L().Info("Wallet setup completed successfully",
			zap.Int("users", len(users)),
			zap.Int("total_wallets", totalWallets))
	}
}

func runInit(ctx context.Context, services *common.Services) {
	zap.L().Info("Initializing database and opening wallets")

	version, err := services.DbService.Migrate()
	if err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}
	zap.L().Info("Database schema ready", zap.Uint("version", version))

	openWallets(ctx, services)

	zap.L().Info("Initialization complete")
}

// runMigrations touches only the schema, so no publisher or ledger mirror is
// contacted.
func runMigrations(ctx context.Context, cfg *models.Config) {
	cfg.Database.AutoMigrate = false
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to open database", zap.Error(err))
	}
	defer dbService.Close()

	version, err := dbService.Migrate()
	if err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}
	fmt.Printf("Database schema at version %d\n", version)
	zap.L().Info("Database schema ready", zap.Uint("version", version))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Initialize the database schema before opening wallets")
	migrateOnlyFlag := flag.Bool("migrate-only", false, "Apply schema migrations and exit without opening wallets")
	flag.Parse()

	// Initialize services at top level
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	if *migrateOnlyFlag {
		runMigrations(ctx, cfg)
		return
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *initFlag {
		runInit(ctx, services)
		return
	}

	openWallets(ctx, services)
}
