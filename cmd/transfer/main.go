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

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fromFlag := flag.String("from", "", "Sender username (required)")
	toFlag := flag.String("to", "", "Recipient username (required)")
	currencyFlag := flag.String("currency", "", "Wallet currency, e.g. USD or NGN (required)")
	amountFlag := flag.String("amount", "", "Amount to transfer (required)")
	flag.Parse()

	if *fromFlag == "" || *toFlag == "" || *currencyFlag == "" || *amountFlag == "" {
		zap.L().Fatal("All flags are required: --from, --to, --currency, --amount")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount format", zap.Error(err))
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

	sender, err := common.RequireUser(ctx, services.DbService.Users(), *fromFlag)
	if err != nil {
		zap.L().Fatal("Failed to resolve sender", zap.Error(err))
	}

	entry, err := services.Engine.TransferFunds(ctx, engine.TransferRequest{
		UserId:            sender.Id,
		Username:          sender.Username,
		RecipientUsername: *toFlag,
		Amount:            amount,
		Currency:          models.ParseCurrency(*currencyFlag),
	})
	if err != nil {
		fmt.Printf("✗ Transfer failed: %s\n", common.DescribeError(err))
		zap.L().Fatal("Transfer failed",
			zap.String("from", sender.Username),
			zap.String("to", *toFlag),
			zap.Error(err))
	}

	common.PrintHeader("TRANSFER COMPLETED", common.DefaultWidth)
	common.PrintTransaction(entry)
	fmt.Printf("Recipient:   %s\n", entry.Meta[models.MetaRecipientUsername])
	common.PrintSeparator("=", common.DefaultWidth)
}
