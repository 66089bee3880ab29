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
	"errors"
	"flag"
	"fmt"
	"regexp"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/store"

	"go.uber.org/zap"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._\-]{1,31}$`)

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("invalid username format: %s", username)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	nameFlag := flag.String("name", "", "User's full name (required)")
	usernameFlag := flag.String("username", "", "Unique username (required)")
	flag.Parse()

	// Validate required flags
	if *nameFlag == "" || *usernameFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --username")
	}

	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}

	username := database.NormalizeUsername(*usernameFlag)
	if err := validateUsername(username); err != nil {
		zap.L().Fatal("Invalid username", zap.Error(err))
	}

	zap.L().Info("Starting user creation process",
		zap.String("name", *nameFlag),
		zap.String("username", username))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.DbService.Users().Create(ctx, *nameFlag, username)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			zap.L().Fatal("User already exists with this username", zap.String("username", username))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	wallets, err := services.Engine.OpenWallets(ctx, user.Id)
	if err != nil {
		zap.L().Error("User created but wallets could not be opened", zap.Error(err))
		fmt.Println("User created but wallets could not be opened")
		fmt.Println("You can re-run setup to retry: go run cmd/setup/main.go")
		return
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", user.Id)
	fmt.Printf("Name:     %s\n", user.FullName)
	fmt.Printf("Username: %s\n", user.Username)
	for i, w := range wallets {
		fmt.Printf("%s %s wallet %s\n", common.BoxPrefix(i == len(wallets)-1), w.Currency, w.Id)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("User created successfully",
		zap.String("id", user.Id),
		zap.Int("wallets", len(wallets)))
}
