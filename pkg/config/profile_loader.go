package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EvaluationProfile is a named, YAML-loadable set of evaluator tunables for
// one deployment environment (dev/staging/prod), letting ops size the
// step-count ceiling, decimal rounding, and import sandboxing without a
// code change (spec §4.12 step-count ceiling; §4.5 rounding policy; §6
// bundle-compatibility constraint).
type EvaluationProfile struct {
	Name          string           `yaml:"name" json:"name"`
	Code          string           `yaml:"code" json:"code"`
	Limits        LimitsConfig     `yaml:"limits" json:"limits"`
	Decimal       DecimalConfig    `yaml:"decimal" json:"decimal"`
	Compatibility CompatConfig     `yaml:"compatibility" json:"compatibility"`
	Imports       ImportPolicy     `yaml:"imports" json:"imports"`
}

// LimitsConfig bounds flow and assembly size (spec §4.12, §7).
type LimitsConfig struct {
	StepLimit          int `yaml:"step_limit" json:"step_limit"`
	MaxFacts           int `yaml:"max_facts" json:"max_facts"`
	MaxParallelBranches int `yaml:"max_parallel_branches" json:"max_parallel_branches"`
}

// DecimalConfig controls fixed-point arithmetic defaults (spec §4.5).
type DecimalConfig struct {
	DefaultScale  int    `yaml:"default_scale" json:"default_scale"`
	RoundingMode  string `yaml:"rounding_mode" json:"rounding_mode"` // only "bank" is defined
	MaxPrecision  int    `yaml:"max_precision,omitempty" json:"max_precision,omitempty"`
}

// CompatConfig governs interchange-bundle version acceptance (spec §6).
type CompatConfig struct {
	SupportedMajor      string `yaml:"supported_major" json:"supported_major"`
	RejectUnknownFields bool   `yaml:"reject_unknown_fields,omitempty" json:"reject_unknown_fields,omitempty"`
}

// ImportPolicy controls which paths the bundler's SourceProvider may
// resolve imports from (spec §4.1's Bundle pass walks a module's imports).
type ImportPolicy struct {
	Mode         string   `yaml:"mode" json:"mode"` // "allowlist" | "denylist" | "sandbox"
	AllowedRoots []string `yaml:"allowed_roots,omitempty" json:"allowed_roots,omitempty"`
	DeniedRoots  []string `yaml:"denied_roots,omitempty" json:"denied_roots,omitempty"`
	Sandbox      bool     `yaml:"sandbox" json:"sandbox"` // if true, IsImportAllowed rejects every import path
}

// LoadProfile loads an evaluation profile YAML by environment code. It
// searches the profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*EvaluationProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile EvaluationProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}

	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from the profiles directory.
func LoadAllProfiles(profilesDir string) (map[string]*EvaluationProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*EvaluationProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile EvaluationProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// IsSandboxed returns true if the profile forbids resolving any import
// beyond the entry file.
func (p *EvaluationProfile) IsSandboxed() bool {
	return p.Imports.Sandbox || p.Imports.Mode == "sandbox"
}

// IsImportAllowed checks whether importPath may be resolved under this
// profile's import policy.
func (p *EvaluationProfile) IsImportAllowed(importPath string) bool {
	if p.IsSandboxed() {
		return false
	}

	switch p.Imports.Mode {
	case "allowlist":
		for _, root := range p.Imports.AllowedRoots {
			if strings.HasPrefix(importPath, root) {
				return true
			}
		}
		return false
	case "denylist":
		for _, root := range p.Imports.DeniedRoots {
			if strings.HasPrefix(importPath, root) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ToConfig projects the profile's tunables onto a Config, letting an
// environment profile override process defaults without re-deriving the
// env-var parsing (see config.go's Load).
func (p *EvaluationProfile) ToConfig() *Config {
	cfg := Load()
	if p.Limits.StepLimit > 0 {
		cfg.StepLimit = p.Limits.StepLimit
	}
	if p.Limits.MaxFacts > 0 {
		cfg.MaxFacts = p.Limits.MaxFacts
	}
	if p.Decimal.RoundingMode != "" {
		cfg.DecimalRounding = p.Decimal.RoundingMode
	}
	if p.Compatibility.SupportedMajor != "" {
		cfg.SupportedMajor = p.Compatibility.SupportedMajor
	}
	return cfg
}
