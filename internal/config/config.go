package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/keychain/internal/errors"
	"github.com/systmms/keychain/internal/logging"
	"github.com/systmms/keychain/pkg/keychain"
)

//go:embed schema.json
var schemaJSON []byte

// Defaults applied when keychain.yaml leaves a field out.
const (
	DefaultPath    = "keychain.yaml"
	DefaultBackend = "keyring"
	DefaultClass   = "generic"
)

// Config holds the runtime configuration
type Config struct {
	Path   string
	Logger *logging.Logger
	// Required makes a missing file an error. Otherwise defaults are used.
	Required   bool
	Definition *Definition
}

// Definition represents the keychain.yaml structure
type Definition struct {
	Version     int      `yaml:"version"`
	Service     string   `yaml:"service,omitempty"`
	AccessGroup string   `yaml:"access_group,omitempty"`
	Backend     string   `yaml:"backend,omitempty"`
	Defaults    Defaults `yaml:"defaults,omitempty"`
}

// Defaults are the item settings used when a command does not override
// them.
type Defaults struct {
	Class         string   `yaml:"class,omitempty"`
	Accessibility string   `yaml:"accessibility,omitempty"`
	Flags         []string `yaml:"flags,omitempty"`
}

// Load reads, validates and parses the keychain.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if !c.Required {
				c.debug("no configuration at %s, using defaults", c.Path)
				c.Definition = &Definition{}
				c.Definition.applyDefaults()
				return nil
			}
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create keychain.yaml or pass --service on the command line",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.debug("loaded configuration from %s", c.Path)
	c.Definition = def
	return nil
}

// Parse validates data against the keychain.yaml schema and decodes it.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if err := validateWithSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: "Compare your file with the example in the README",
		}
	}
	def.applyDefaults()
	return &def, nil
}

// validateWithSchema checks the decoded document against the embedded
// JSON schema.
func validateWithSchema(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	var messages []string
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return dserrors.ConfigError{
		Field:      first.Field(),
		Value:      first.Value(),
		Message:    strings.Join(messages, "; "),
		Suggestion: "See the keychain.yaml reference for allowed keys and values",
	}
}

func (d *Definition) applyDefaults() {
	if d.Backend == "" {
		d.Backend = DefaultBackend
	}
	if d.Defaults.Class == "" {
		d.Defaults.Class = DefaultClass
	}
}

// Override replaces the scope and backend with non-empty command line
// values.
func (c *Config) Override(service, accessGroup, backend string) {
	if c.Definition == nil {
		c.Definition = &Definition{}
		c.Definition.applyDefaults()
	}
	if service != "" {
		c.Definition.Service = service
	}
	if accessGroup != "" {
		c.Definition.AccessGroup = accessGroup
	}
	if backend != "" {
		c.Definition.Backend = backend
	}
}

// Backends reports which backend names can be created.
type Backends interface {
	IsSupported(name string) bool
	SupportedTypes() []string
}

// Validate checks the settings that can not be expressed in the schema
// because they may come from flags.
func (c *Config) Validate(backends Backends) error {
	if c.Definition == nil || c.Definition.Service == "" {
		return dserrors.ConfigError{
			Field:      "service",
			Message:    "a service is required",
			Suggestion: "Set 'service' in keychain.yaml or pass --service",
		}
	}
	if !backends.IsSupported(c.Definition.Backend) {
		return dserrors.ConfigError{
			Field:      "backend",
			Value:      c.Definition.Backend,
			Message:    "unknown backend",
			Suggestion: "Use one of: " + strings.Join(backends.SupportedTypes(), ", "),
		}
	}
	return nil
}

// ClientConfig returns the scope for keychain.New.
func (c *Config) ClientConfig() keychain.Config {
	return keychain.Config{
		Service:     c.Definition.Service,
		AccessGroup: c.Definition.AccessGroup,
	}
}

// ItemClass parses class, falling back to the configured default.
func (c *Config) ItemClass(class string) (keychain.ItemClass, error) {
	field := "--class"
	if class == "" {
		class = c.Definition.Defaults.Class
		field = "defaults.class"
	}
	ic, err := keychain.ParseItemClass(class)
	if err != nil {
		return keychain.ClassUnset, dserrors.ConfigError{
			Field:      field,
			Value:      class,
			Message:    err.Error(),
			Suggestion: "Use one of: generic, internet, certificate, key, identity",
		}
	}
	return ic, nil
}

// AccessControl builds the policy for a write. Empty arguments fall back
// to the configured defaults; nil is returned when neither sets a tier or
// flags.
func (c *Config) AccessControl(accessibility, flags string) (*keychain.AccessControl, error) {
	if accessibility == "" {
		accessibility = c.Definition.Defaults.Accessibility
	}
	if flags == "" {
		flags = strings.Join(c.Definition.Defaults.Flags, ",")
	}
	if accessibility == "" && flags == "" {
		return nil, nil
	}

	ac := &keychain.AccessControl{Protection: keychain.AccessibleWhenUnlocked}
	if accessibility != "" {
		tier, err := keychain.ParseAccessibility(accessibility)
		if err != nil {
			return nil, dserrors.ConfigError{
				Field:      "accessibility",
				Value:      accessibility,
				Message:    err.Error(),
				Suggestion: "Use a tier such as whenUnlocked, afterFirstUnlock or whenPasscodeSetThisDeviceOnly",
			}
		}
		ac.Protection = tier
	}
	if flags != "" {
		parsed, err := keychain.ParseAccessControlFlags(flags)
		if err != nil {
			return nil, dserrors.ConfigError{
				Field:      "flags",
				Value:      flags,
				Message:    err.Error(),
				Suggestion: "Separate flag names with commas, e.g. userPresence,or,devicePasscode",
			}
		}
		ac.Flags = parsed
	}
	return ac, nil
}

func (c *Config) debug(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Debug(format, args...)
	}
}
