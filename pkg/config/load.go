package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"scope-crawler/pkg/trap"
	"scope-crawler/pkg/utils"
)

// Load reads and parses a YAML config file. Defaults are not applied; call Validate.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file '%s': %w", utils.ErrFilesystem, path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: YAML config '%s': %w", utils.ErrParsing, path, err)
	}
	return &cfg, nil
}

// DetectorOptions converts the trap settings for trap.NewDetector
func (t TrapConfig) DetectorOptions() trap.Options {
	opts := trap.DefaultOptions()
	if t.MaxPathVisits > 0 {
		opts.MaxPathVisits = t.MaxPathVisits
	}
	if t.MaxURLLength > 0 {
		opts.MaxURLLength = t.MaxURLLength
	}
	if t.BlockedQueries != nil {
		opts.BlockedQueries = append([]string(nil), t.BlockedQueries...)
	}
	opts.DisableFirstSighting = !t.EffectiveFlagFirstSighting()
	return opts
}

// CompiledPathPatterns compiles DisallowedPathPatterns
func (t TrapConfig) CompiledPathPatterns() ([]*regexp.Regexp, error) {
	return utils.CompileRegexPatterns(t.DisallowedPathPatterns)
}
