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

package models

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCurrencyPrecision is the finest scale the ledger store can hold exactly.
const MaxCurrencyPrecision = 6

// MaxBalance is the largest balance a wallet can hold: the int64 range of the
// store's fixed-scale units.
var MaxBalance = decimal.New(math.MaxInt64, -MaxCurrencyPrecision)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyNGN Currency = "NGN"
)

// ParseCurrency normalizes user input such as " usd " to USD.
func ParseCurrency(s string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(s)))
}

// CurrencySpec describes one supported currency
type CurrencySpec struct {
	Code      Currency
	Precision int
}

// CurrencyRegistry is the set of currencies wallets can be opened in.
type CurrencyRegistry struct {
	specs map[Currency]CurrencySpec
	order []Currency
}

func NewCurrencyRegistry(specs ...CurrencySpec) (*CurrencyRegistry, error) {
	r := &CurrencyRegistry{specs: make(map[Currency]CurrencySpec, len(specs))}
	for _, s := range specs {
		code := ParseCurrency(string(s.Code))
		if code == "" {
			return nil, fmt.Errorf("currency code cannot be empty")
		}
		if s.Precision < 0 || s.Precision > MaxCurrencyPrecision {
			return nil, fmt.Errorf("currency %s precision must be between 0 and %d, got %d", code, MaxCurrencyPrecision, s.Precision)
		}
		if _, dup := r.specs[code]; dup {
			return nil, fmt.Errorf("currency %s listed twice", code)
		}
		r.specs[code] = CurrencySpec{Code: code, Precision: s.Precision}
		r.order = append(r.order, code)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
	return r, nil
}

// DefaultCurrencies returns the built-in USD and NGN registry.
func DefaultCurrencies() *CurrencyRegistry {
	r, _ := NewCurrencyRegistry(
		CurrencySpec{Code: CurrencyUSD, Precision: 2},
		CurrencySpec{Code: CurrencyNGN, Precision: 2},
	)
	return r
}

func (r *CurrencyRegistry) Lookup(c Currency) (CurrencySpec, bool) {
	s, ok := r.specs[c]
	return s, ok
}

func (r *CurrencyRegistry) Supports(c Currency) bool {
	_, ok := r.specs[c]
	return ok
}

// Codes returns supported codes in alphabetical order.
func (r *CurrencyRegistry) Codes() []Currency {
	out := make([]Currency, len(r.order))
	copy(out, r.order)
	return out
}

// ValidateAmount checks that amount is positive and fits the currency's precision.
func (r *CurrencyRegistry) ValidateAmount(c Currency, amount decimal.Decimal) error {
	spec, ok := r.specs[c]
	if !ok {
		return fmt.Errorf("unsupported currency: %s", c)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if amount.GreaterThan(MaxBalance) {
		return fmt.Errorf("amount %s exceeds the maximum wallet balance", amount.String())
	}
	if !amount.Equal(amount.Truncate(int32(spec.Precision))) {
		return fmt.Errorf("amount %s exceeds %d decimal places for %s", amount.String(), spec.Precision, c)
	}
	return nil
}
