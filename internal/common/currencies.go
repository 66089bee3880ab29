package common

import (
	"fmt"
	"os"
	"path/filepath"

	"wallet-ledger-go/internal/models"

	"gopkg.in/yaml.v2"
)

type CurrencyConfig struct {
	Code      string `yaml:"code"`
	Precision *int   `yaml:"precision"`
}

type CurrenciesConfig struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
}

// LoadCurrencies reads the supported currency set. A missing file falls back
// to the built-in USD and NGN registry.
func LoadCurrencies(currenciesFile string) (*models.CurrencyRegistry, error) {
	var currenciesPath string
	if filepath.IsAbs(currenciesFile) {
		currenciesPath = currenciesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		currenciesPath = filepath.Join(wd, currenciesFile)
	}

	data, err := os.ReadFile(currenciesPath)
	if os.IsNotExist(err) {
		return models.DefaultCurrencies(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", currenciesFile, err)
	}

	return ParseCurrencies(data)
}

func ParseCurrencies(data []byte) (*models.CurrencyRegistry, error) {
	var config CurrenciesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse currencies: %w", err)
	}
	if len(config.Currencies) == 0 {
		return nil, fmt.Errorf("no currencies configured")
	}

	specs := make([]models.CurrencySpec, len(config.Currencies))
	for i, c := range config.Currencies {
		if c.Code == "" {
			return nil, fmt.Errorf("currency at index %d missing code", i)
		}
		if c.Precision == nil {
			return nil, fmt.Errorf("currency at index %d missing precision", i)
		}
		specs[i] = models.CurrencySpec{Code: models.Currency(c.Code), Precision: *c.Precision}
	}

	return models.NewCurrencyRegistry(specs...)
}
