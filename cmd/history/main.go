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
	"strings"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

func printEntry(entry models.TransactionLog, isLast bool) {
	fmt.Printf("%s %s  %-6s %-7s %15s %s  %s\n",
		common.BoxPrefix(isLast),
		entry.CreatedAt.Format("2006-01-02 15:04:05"),
		entry.Type,
		entry.Status,
		entry.Amount.String(),
		entry.Currency,
		entry.Description)
	if entry.ErrorMessage != "" {
		fmt.Printf("%s   error: %s\n", common.BoxDetailPrefix(isLast), entry.ErrorMessage)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	usernameFlag := flag.String("username", "", "Username (required)")
	currencyFlag := flag.String("currency", "", "Only this currency (optional)")
	typeFlag := flag.String("type", "", "CREDIT or DEBIT (optional)")
	statusFlag := flag.String("status", "", "PENDING, SUCCESS or FAILED (optional)")
	limitFlag := flag.Int("limit", 50, "Maximum entries to show")
	offsetFlag := flag.Int("offset", 0, "Entries to skip")
	flag.Parse()

	if *usernameFlag == "" {
		logger.Fatal("Flag is required: --username")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := common.RequireUser(ctx, services.DbService.Users(), *usernameFlag)
	if err != nil {
		logger.Fatal("Failed to resolve user", zap.Error(err))
	}

	filter := models.HistoryFilter{
		Currency: models.ParseCurrency(*currencyFlag),
		Type:     models.TransactionType(strings.ToUpper(*typeFlag)),
		Status:   models.TransactionStatus(strings.ToUpper(*statusFlag)),
		Limit:    *limitFlag,
		Offset:   *offsetFlag,
	}

	entries, err := services.Engine.GetTransactionHistory(ctx, user.Id, filter)
	if err != nil {
		fmt.Printf("✗ %s\n", common.DescribeError(err))
		logger.Fatal("Failed to get transaction history", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("TRANSACTION HISTORY: %s", user.Username), common.WideWidth)
	for i, entry := range entries {
		printEntry(entry, i == len(entries)-1)
	}
	common.PrintFooter(fmt.Sprintf("%d entries", len(entries)), common.WideWidth)
}
