// Package config loads the decision engine's process-wide configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the typed configuration for one process.
type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Data struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"data"`

	Orchestrator struct {
		SymbolFetchWorkers int      `mapstructure:"symbol_fetch_workers"`
		Symbols            []string `mapstructure:"symbols"`
	} `mapstructure:"orchestrator"`

	Executor struct {
		Mode       string `mapstructure:"mode"` // simulator | real
		HealthMode string `mapstructure:"health_mode"` // normal | degraded | down
		BaseURL    string `mapstructure:"base_url"`
	} `mapstructure:"executor"`

	RiskLimits struct {
		MaxDrawdown            string `mapstructure:"max_drawdown"`
		MaxExposure            string `mapstructure:"max_exposure"`
		MaxDailyLoss           string `mapstructure:"max_daily_loss"`
		MaxPositions           int    `mapstructure:"max_positions"`
		MaxExposurePerSymbol   string `mapstructure:"max_exposure_per_symbol"`
		MaxExposurePerCurrency string `mapstructure:"max_exposure_per_currency"`
		MaxCorrelatedExposure  string `mapstructure:"max_correlated_exposure"`
		MinResidualRiskPct     string `mapstructure:"min_residual_risk_pct"`
	} `mapstructure:"risk_limits"`
}

// DecimalRiskLimits parses the string-encoded risk limit config into
// decimal.Decimal values.
func (c Config) DecimalRiskLimits() (maxDrawdown, maxExposure, maxDailyLoss, maxExpSymbol, maxExpCurrency, maxCorrExp, minResidual decimal.Decimal, err error) {
	parse := func(s string) (decimal.Decimal, error) { return decimal.NewFromString(s) }
	if maxDrawdown, err = parse(c.RiskLimits.MaxDrawdown); err != nil {
		return
	}
	if maxExposure, err = parse(c.RiskLimits.MaxExposure); err != nil {
		return
	}
	if maxDailyLoss, err = parse(c.RiskLimits.MaxDailyLoss); err != nil {
		return
	}
	if maxExpSymbol, err = parse(c.RiskLimits.MaxExposurePerSymbol); err != nil {
		return
	}
	if maxExpCurrency, err = parse(c.RiskLimits.MaxExposurePerCurrency); err != nil {
		return
	}
	if maxCorrExp, err = parse(c.RiskLimits.MaxCorrelatedExposure); err != nil {
		return
	}
	minResidual, err = parse(c.RiskLimits.MinResidualRiskPct)
	return
}

// Default returns the built-in defaults, used when no config file is found.
func Default() Config {
	var c Config
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8088
	c.Log.Level = "info"
	c.Data.Dir = "./data"
	c.Orchestrator.SymbolFetchWorkers = 4
	c.Orchestrator.Symbols = []string{"EURUSD", "GBPUSD", "USDJPY"}
	c.Executor.Mode = "simulator"
	c.Executor.HealthMode = "normal"
	c.RiskLimits.MaxDrawdown = "10"
	c.RiskLimits.MaxExposure = "30"
	c.RiskLimits.MaxDailyLoss = "5"
	c.RiskLimits.MaxPositions = 10
	c.RiskLimits.MaxExposurePerSymbol = "8"
	c.RiskLimits.MaxExposurePerCurrency = "15"
	c.RiskLimits.MaxCorrelatedExposure = "20"
	c.RiskLimits.MinResidualRiskPct = "0.1"
	return c
}

// Load reads config from the named file (if present), environment variables
// prefixed FXENGINE_, and falls back to Default() for anything unset.
func Load(path string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("FXENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("data.dir", def.Data.Dir)
	v.SetDefault("orchestrator.symbol_fetch_workers", def.Orchestrator.SymbolFetchWorkers)
	v.SetDefault("orchestrator.symbols", def.Orchestrator.Symbols)
	v.SetDefault("executor.mode", def.Executor.Mode)
	v.SetDefault("executor.health_mode", def.Executor.HealthMode)
	v.SetDefault("executor.base_url", def.Executor.BaseURL)
	v.SetDefault("risk_limits.max_drawdown", def.RiskLimits.MaxDrawdown)
	v.SetDefault("risk_limits.max_exposure", def.RiskLimits.MaxExposure)
	v.SetDefault("risk_limits.max_daily_loss", def.RiskLimits.MaxDailyLoss)
	v.SetDefault("risk_limits.max_positions", def.RiskLimits.MaxPositions)
	v.SetDefault("risk_limits.max_exposure_per_symbol", def.RiskLimits.MaxExposurePerSymbol)
	v.SetDefault("risk_limits.max_exposure_per_currency", def.RiskLimits.MaxExposurePerCurrency)
	v.SetDefault("risk_limits.max_correlated_exposure", def.RiskLimits.MaxCorrelatedExposure)
	v.SetDefault("risk_limits.min_residual_risk_pct", def.RiskLimits.MinResidualRiskPct)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
