package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeFloat is a decimal value.
	TypeFloat OptionType = "float"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
	// TypePathList is a colon-separated (or semicolon on Windows) list of paths.
	TypePathList OptionType = "path-list"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a command/section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options for the application.
// It is used for validation, documentation, typed getters, and env var mapping.
type ConfigSchema struct {
	options []*ConfigOption
	// byKey indexes global options by key for fast lookup.
	byKey map[string]*ConfigOption
	// bySection indexes command/section options by section then key.
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys within the same
// section are silently overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
	} else {
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*ConfigOption)
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for global).
// Returns nil if the key is not registered.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// IsKnown returns true if the key is registered in the given section.
// For command sections, global keys are also considered known (they can
// appear in command sections and fall back to the global value).
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section == "" {
		return s.byKey[key] != nil
	}
	// Command section: check section-specific, then global.
	if sec, ok := s.bySection[section]; ok {
		if sec[key] != nil {
			return true
		}
	}
	return s.byKey[key] != nil
}

// GlobalOptions returns all registered global options (Section == "").
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == "" {
			out = append(out, *o)
		}
	}
	return out
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns a sorted list of all registered non-empty section names.
func (s *ConfigSchema) Sections() []string {
	seen := make(map[string]bool)
	for sec := range s.bySection {
		seen[sec] = true
	}
	out := make([]string, 0, len(seen))
	for sec := range seen {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for a global config key by checking,
// in order: (1) the environment variable declared in the schema for this key,
// (2) the config value, (3) the schema default. Returns "" if the key is not
// found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	// Check env var override from schema.
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	// Check config value.
	v, ok := c.GetGlobalOption(key)
	if ok {
		return v
	}
	// Fall back to schema default.
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid). Validation includes:
//   - Unknown global options (not in schema)
//   - Unknown command options (not in schema for that section, and not global)
//   - Type mismatches for options with declared types
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	// Validate global options.
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	// Validate command-section options.
	for section, opts := range c.Commands {
		for key, value := range opts {
			if !s.IsKnown(section, key) {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			// Find the option definition (section-specific or global fallback).
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt != nil {
				if err := validateType(opt.Type, value); err != nil {
					issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, TypePathList, "":
		// Anything is valid for string and path-list.
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("expected float, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// --- Typed getter methods on Config ---

// The getters resolve key through DefaultSchema: its environment variable,
// then the config value, then the schema default. A value that does not
// parse falls back to the schema default, and to the zero value when that
// does not parse either.

// GetString returns the resolved value for key, or "" if it is set nowhere.
func (c *Config) GetString(key string) string {
	return DefaultSchema().Resolve(c, key)
}

// GetBool returns the resolved value for key parsed as a boolean.
func (c *Config) GetBool(key string) bool { return getTyped(c, key, parseBool) }

// GetInt returns the resolved value for key parsed as an integer.
func (c *Config) GetInt(key string) int { return getTyped(c, key, strconv.Atoi) }

// GetFloat returns the resolved value for key parsed as a float.
func (c *Config) GetFloat(key string) float64 {
	return getTyped(c, key, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

// GetDuration returns the resolved value for key parsed as a time.Duration.
func (c *Config) GetDuration(key string) time.Duration {
	return getTyped(c, key, time.ParseDuration)
}

func getTyped[T any](c *Config, key string, parse func(string) (T, error)) T {
	s := DefaultSchema()
	if v, err := parse(s.Resolve(c, key)); err == nil {
		return v
	}
	var zero T
	opt := s.Lookup("", key)
	if opt == nil {
		return zero
	}
	if v, err := parse(opt.Default); err == nil {
		return v
	}
	return zero
}

// --- Help text generation ---

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema, grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	// Global options first.
	globals := s.GlobalOptions()
	if len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	// Section options.
	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n[%s] Options:\n", sec))
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	b.WriteString(fmt.Sprintf("  %-35s %s", o.Key, o.Description))
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		b.WriteString(fmt.Sprintf(" (%s)", strings.Join(parts, ", ")))
	}
	b.WriteString("\n")
}

// --- Default schema for botsim ---

// Option keys read by Tuning and the commands.
const (
	KeySquadProximity        = "squad.connectivity-proximity"
	KeySquadMoveCentiseconds = "squad.move-centiseconds"
	KeySquadTimeout          = "squad.connectivity-timeout"
	KeyAlertTimeout          = "objective.alert-timeout"
	KeyAlertStale            = "objective.alert-stale"
	KeyAlertNotifyJump       = "objective.alert-notify-jump"
	KeyPlannerMaxNodes       = "planner.max-nodes"
	KeyPlannerHeuristic      = "planner.heuristic-weight"
	KeyAffinityModulo        = "affinity.modulo"
	KeyScriptPaths           = "script.paths"
	KeyGoalPaths             = "goal.paths"
	KeyLogLevel              = "log.level"
	KeyLogFormat             = "log.format"
	KeyLogFile               = "log.file"
)

// DefaultSchema returns the canonical schema declaring all known botsim
// configuration options. This is the single source of truth for option names,
// types, defaults, descriptions, and environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultGlobalOptions())
	s.RegisterAll(defaultCommandOptions())
	return s
}

func defaultGlobalOptions() []ConfigOption {
	return []ConfigOption{
		// Squad formation
		{Key: KeySquadProximity, Type: TypeFloat, Default: "500", Description: "Farthest two squad mates can be apart"},
		{Key: KeySquadMoveCentiseconds, Type: TypeInt, Default: "400", Description: "Budget for the summed travel time between squad mates"},
		{Key: KeySquadTimeout, Type: TypeDuration, Default: "750ms", Description: "How long a squad survives without connectivity"},

		// Objective roles
		{Key: KeyAlertTimeout, Type: TypeDuration, Default: "1s", Description: "How long a reported spot alert lasts"},
		{Key: KeyAlertStale, Type: TypeDuration, Default: "150ms", Description: "Age after which a lower alert may replace a higher one"},
		{Key: KeyAlertNotifyJump, Type: TypeFloat, Default: "0.3", Description: "Alert increase that makes a bot warn its team"},

		// Planner
		{Key: KeyPlannerMaxNodes, Type: TypeInt, Default: "512", Description: "Node budget of one plan search"},
		{Key: KeyPlannerHeuristic, Type: TypeFloat, Default: "1", Description: "Weight of the unsatisfied variable heuristic"},

		// Scheduling
		{Key: KeyAffinityModulo, Type: TypeInt, Default: "1", Description: "Ticks over which team brains and bots spread their thinking"},

		// Behaviour sources
		{Key: KeyScriptPaths, Type: TypePathList, Default: "", Description: "Behaviour scripts loaded at startup", EnvVar: "BOTCORE_SCRIPT_PATHS"},
		{Key: KeyGoalPaths, Type: TypePathList, Default: "", Description: "YAML expression goal files loaded at startup"},

		// Logging
		{Key: KeyLogLevel, Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "BOTCORE_LOG_LEVEL"},
		{Key: KeyLogFormat, Type: TypeString, Default: "auto", Description: "Log format: auto, text, json", EnvVar: "BOTCORE_LOG_FORMAT"},
		{Key: KeyLogFile, Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "BOTCORE_LOG_FILE"},
	}
}

func defaultCommandOptions() []ConfigOption {
	return []ConfigOption{
		// [simulate] section
		{Key: "ticks", Section: "simulate", Type: TypeInt, Default: "", Description: "Ticks to run, overriding the scenario"},
		{Key: "report-every", Section: "simulate", Type: TypeInt, Default: "0", Description: "Ticks between squad and role reports, 0 for the end only"},

		// [version] section
		{Key: "format", Section: "version", Type: TypeString, Default: "", Description: "Version output format"},
	}
}
