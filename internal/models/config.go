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

import "time"

// Config holds all application configuration
type Config struct {
	Database       DatabaseConfig
	CurrenciesFile string
	Events         EventsConfig
	Formance       FormanceConfig
	Sweeper        SweeperConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
	AutoMigrate     bool
}

// EventsConfig selects the post-commit transaction event sinks.
// A sink is enabled when its address is set.
type EventsConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	KafkaBrokers  []string
	KafkaTopic    string
}

// FormanceConfig holds the Formance Stack connection used to mirror committed entries
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

func (c FormanceConfig) Enabled() bool {
	return c.StackURL != ""
}

// SweeperConfig holds pending-entry recovery settings
type SweeperConfig struct {
	Interval    time.Duration
	PendingAge  time.Duration
	MetricsAddr string
}
