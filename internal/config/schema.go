package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value.
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the dotted option name as it appears in the config file.
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Choices, if set, lists the only accepted values.
	Choices []string
	// Description is a human-readable description of the option.
	Description string
	// EnvVar is the environment variable that overrides this option.
	EnvVar string
}

// ConfigSchema declares the expected configuration options for the
// application. It drives defaults, validation, env var mapping and help.
type ConfigSchema struct {
	options []*ConfigOption
	byKey   map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{byKey: make(map[string]*ConfigOption)}
}

// Register adds a ConfigOption to the schema. Registering a key twice
// replaces the earlier declaration. If EnvVar is empty it is derived from the
// key: GOAP_ plus the upper-cased key with dots as underscores.
func (s *ConfigSchema) Register(opt ConfigOption) {
	if opt.EnvVar == "" {
		opt.EnvVar = EnvVarFor(opt.Key)
	}
	ref := new(ConfigOption)
	*ref = opt
	if prev, ok := s.byKey[opt.Key]; ok {
		i := slices.Index(s.options, prev)
		s.options[i] = ref
	} else {
		s.options = append(s.options, ref)
	}
	s.byKey[opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for key, or nil.
func (s *ConfigSchema) Lookup(key string) *ConfigOption {
	return s.byKey[key]
}

// Options returns every registered option in registration order.
func (s *ConfigSchema) Options() []ConfigOption {
	out := make([]ConfigOption, len(s.options))
	for i, o := range s.options {
		out[i] = *o
	}
	return out
}

// EnvVarFor maps a dotted key onto its environment variable name.
func EnvVarFor(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// ValidateSettings checks flattened settings against the schema and returns a
// sorted list of human-readable issues, empty if the settings are valid.
// Unknown keys are reported, as are type and choice mismatches.
func (s *ConfigSchema) ValidateSettings(settings map[string]string) []string {
	var issues []string
	for key, value := range settings {
		opt := s.Lookup(key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown option: %q (value: %q)", key, value))
			continue
		}
		if err := validateOption(opt, value); err != nil {
			issues = append(issues, fmt.Sprintf("option %q: %v", key, err))
		}
	}
	slices.Sort(issues)
	return issues
}

func validateOption(opt *ConfigOption, value string) error {
	if err := validateType(opt.Type, value); err != nil {
		return err
	}
	if len(opt.Choices) > 0 && !slices.Contains(opt.Choices, value) {
		return fmt.Errorf("expected one of %s, got %q", strings.Join(opt.Choices, ", "), value)
	}
	return nil
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// parseBool accepts the usual spellings of a boolean.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", s)
	}
}

// --- Help text generation ---

// FormatHelp returns a formatted, human-readable reference of all registered
// options, grouped by their first key segment.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	var group string
	for _, o := range s.options {
		g, _, _ := strings.Cut(o.Key, ".")
		if g != group {
			if group != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "[%s]\n", g)
			group = g
		}
		writeOptionHelp(&b, *o)
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-26s %s", o.Key, o.Description)
	parts := make([]string, 0, 4)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if len(o.Choices) > 0 {
		parts = append(parts, fmt.Sprintf("one of: %s", strings.Join(o.Choices, "|")))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// --- Default schema ---

// DefaultSchema returns the canonical schema declaring every known option.
// It is the single source of truth for option names, types, defaults,
// descriptions and environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll(defaultOptions())
	return s
}

func defaultOptions() []ConfigOption {
	return []ConfigOption{
		// Planning
		{Key: "planner.max_iterations", Type: TypeInt, Default: "10000", Description: "Node expansions before a search gives up"},
		{Key: "planner.heuristic", Type: TypeString, Default: "unsatisfied", Choices: []string{"unsatisfied", "zero"}, Description: "Search heuristic"},
		{Key: "planner.expr_cache_size", Type: TypeInt, Default: "1000", Description: "Compiled expression conditions kept in the shared cache"},

		// Execution
		{Key: "executor.max_replans", Type: TypeInt, Default: "3", Description: "Replan budget before execution fails"},

		// Logging
		{Key: "log.level", Type: TypeString, Default: "info", Choices: []string{"debug", "info", "warn", "error"}, Description: "Log level"},
		{Key: "log.format", Type: TypeString, Default: "text", Choices: []string{"text", "json"}, Description: "Log output format"},
		{Key: "log.file", Type: TypeString, Default: "", Description: "Log file path; empty logs to stderr"},
		{Key: "log.max_size_mb", Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: "log.max_files", Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},

		// Tracing
		{Key: "telemetry.enabled", Type: TypeBool, Default: "false", Description: "Export traces over OTLP/gRPC"},
		{Key: "telemetry.endpoint", Type: TypeString, Default: "", Description: "OTLP collector endpoint (host:port)"},
		{Key: "telemetry.insecure", Type: TypeBool, Default: "false", Description: "Disable TLS for the OTLP connection"},
		{Key: "telemetry.service_name", Type: TypeString, Default: "goap", Description: "service.name resource attribute"},
	}
}
