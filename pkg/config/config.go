package config

import (
	"os"
	"strconv"
)

// Config holds process-wide evaluator tunables, loaded from environment
// variables with safe defaults (spec §4.12, §7: step-count ceiling,
// schema strictness, supported bundle-version range).
type Config struct {
	LogLevel        string
	StepLimit       int
	MaxFacts        int
	DecimalRounding string // "bank" (half-to-even) is the only mode spec §4.5 defines
	SchemaStrict    bool   // loaded only; Elaborate runs schema.ValidateEnvelope regardless of it
	SupportedMajor  string // semver constraint CheckCompatibility enforces, e.g. "^1"
}

// Load reads configuration from environment variables, applying the
// defaults a bare evaluator invocation needs to run safely.
func Load() *Config {
	logLevel := os.Getenv("TENOR_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	stepLimit := envInt("TENOR_STEP_LIMIT", 1000)
	maxFacts := envInt("TENOR_MAX_FACTS", 10000)

	rounding := os.Getenv("TENOR_DECIMAL_ROUNDING")
	if rounding == "" {
		rounding = "bank"
	}

	schemaStrict := os.Getenv("TENOR_SCHEMA_STRICT") != "false"

	supportedMajor := os.Getenv("TENOR_SUPPORTED_MAJOR")
	if supportedMajor == "" {
		supportedMajor = "^1"
	}

	return &Config{
		LogLevel:        logLevel,
		StepLimit:       stepLimit,
		MaxFacts:        maxFacts,
		DecimalRounding: rounding,
		SchemaStrict:    schemaStrict,
		SupportedMajor:  supportedMajor,
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
