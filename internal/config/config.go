// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/datetime"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"github.com/iwvelando/loan-eir/pkg/irr"
	"github.com/iwvelando/loan-eir/pkg/validation"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for loan-eir.
type Configuration struct {
	Engine  EngineConfig  `yaml:"engine,omitempty"`
	Loans   []Loan        `yaml:"loans,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
}

// EngineConfig tunes the rate calculation.
type EngineConfig struct {
	DayCount         string       `yaml:"dayCount,omitempty"`
	RatePrecision    int32        `yaml:"ratePrecision,omitempty"`
	IncludeCashFlows bool         `yaml:"includeCashFlows,omitempty"`
	Solver           SolverConfig `yaml:"solver,omitempty"`
}

// SolverConfig holds root-finder limits.
type SolverConfig struct {
	ToleranceFactor     float64 `yaml:"toleranceFactor,omitempty"`
	MaxIterations       int     `yaml:"maxIterations,omitempty"`
	BisectionIterations int     `yaml:"bisectionIterations,omitempty"`
	MinRate             float64 `yaml:"minRate,omitempty"`
	MaxRate             float64 `yaml:"maxRate,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := irr.DefaultOptions()
	v.SetDefault("engine.dayCount", constants.DefaultDayCount)
	v.SetDefault("engine.ratePrecision", constants.RatePlaces)
	v.SetDefault("engine.includeCashFlows", true)
	v.SetDefault("engine.solver.toleranceFactor", defaults.ToleranceFactor)
	v.SetDefault("engine.solver.maxIterations", defaults.MaxIterations)
	v.SetDefault("engine.solver.bisectionIterations", defaults.BisectionIterations)
	v.SetDefault("engine.solver.minRate", defaults.MinRate)
	v.SetDefault("engine.solver.maxRate", defaults.MaxRate)
	v.SetDefault("output.format", constants.OutputFormatPretty)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	err := v.Unmarshal(&configuration, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with LOANEIR_
// override file values, e.g. LOANEIR_ENGINE_DAYCOUNT.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a configuration document of the given
// type (yaml or json) from r.
func LoadConfigurationFromReader(r io.Reader, configType string) (*Configuration, error) {
	if configType == "" {
		configType = "yaml"
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Settings converts the engine section into calculator settings.
func (c *Configuration) Settings() (eir.Settings, error) {
	dayCount, err := datetime.ParseDayCount(c.Engine.DayCount)
	if err != nil {
		return eir.Settings{}, err
	}

	settings := eir.DefaultSettings()
	settings.DayCount = dayCount
	if c.Engine.RatePrecision > 0 {
		settings.RatePrecision = c.Engine.RatePrecision
	}
	settings.Solver = irr.Options{
		ToleranceFactor:     c.Engine.Solver.ToleranceFactor,
		MaxIterations:       c.Engine.Solver.MaxIterations,
		BisectionIterations: c.Engine.Solver.BisectionIterations,
		MinRate:             c.Engine.Solver.MinRate,
		MaxRate:             c.Engine.Solver.MaxRate,
	}
	return settings, nil
}

// ValidateConfiguration checks the configuration, returning warnings for
// suspicious values and an error for unusable ones.
func (c *Configuration) ValidateConfiguration() ([]string, error) {
	var warnings []string

	if err := validation.ValidateDayCount(c.Engine.DayCount); err != nil {
		return nil, err
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return nil, err
		}
	}

	solver := c.Engine.Solver
	if solver.MinRate != 0 && solver.MaxRate != 0 && solver.MinRate >= solver.MaxRate {
		return nil, fmt.Errorf("solver minRate %g must be below maxRate %g", solver.MinRate, solver.MaxRate)
	}
	if solver.MinRate != 0 && solver.MinRate <= -1 {
		return nil, fmt.Errorf("solver minRate %g must be above -1", solver.MinRate)
	}
	if c.Engine.RatePrecision > 10 {
		warnings = append(warnings, fmt.Sprintf("ratePrecision %d is beyond solver accuracy", c.Engine.RatePrecision))
	}

	seen := make(map[string]bool, len(c.Loans))
	for _, loan := range c.Loans {
		if loan.LoanID == "" {
			continue
		}
		if seen[loan.LoanID] {
			warnings = append(warnings, fmt.Sprintf("Loan '%s' appears more than once", loan.LoanID))
		}
		seen[loan.LoanID] = true
	}

	return warnings, nil
}
