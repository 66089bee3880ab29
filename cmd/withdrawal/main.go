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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type withdrawalRequest struct {
	username string
	currency models.Currency
	amount   decimal.Decimal
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	usernameFlag := flag.String("username", "", "Username to debit (required)")
	currencyFlag := flag.String("currency", "", "Wallet currency, e.g. USD or NGN (required)")
	amountFlag := flag.String("amount", "", "Amount to withdraw (required)")
	flag.Parse()

	if *usernameFlag == "" || *currencyFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("all flags are required: --username, --currency, --amount")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	return &withdrawalRequest{
		username: *usernameFlag,
		currency: models.ParseCurrency(*currencyFlag),
		amount:   amount,
	}, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := common.RequireUser(ctx, services.DbService.Users(), req.username)
	if err != nil {
		zap.L().Fatal("Failed to resolve user", zap.Error(err))
	}

	entry, err := services.Engine.Withdraw(ctx, user.Id, req.amount, req.currency)
	if err != nil {
		fmt.Printf("✗ Withdrawal failed: %s\n", common.DescribeError(err))
		if failed := engine.EntryOf(err); failed != nil {
			fmt.Printf("  Recorded as %s (%s)\n", failed.Id, failed.Status)
		}
		zap.L().Fatal("Withdrawal failed", zap.String("username", user.Username), zap.Error(err))
	}

	common.PrintHeader("WITHDRAWAL COMPLETED", common.DefaultWidth)
	common.PrintTransaction(entry)
	common.PrintSeparator("=", common.DefaultWidth)
}
