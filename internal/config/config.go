package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/runger/nvpick/internal/layout"
)

// Config represents the nvpick configuration.
type Config struct {
	Picker  PickerConfig  `yaml:"picker"`
	Keys    KeysConfig    `yaml:"keys"`
	Project ProjectConfig `yaml:"project"`
	Log     LogConfig     `yaml:"log"`
}

// PickerConfig holds picker sizing settings.
type PickerConfig struct {
	Border      string   `yaml:"border"`       // none, rounded, single, double
	BorderChars []string `yaml:"border_chars"` // Eight edge glyphs; overrides border when set
	WidthRatio  float64  `yaml:"width_ratio"`  // Fraction of the screen width (0 = unset)
	HeightRatio float64  `yaml:"height_ratio"` // Fraction of the screen height (0 = unset)
	AutoWidth   bool     `yaml:"auto_width"`   // Fit width to content when width_ratio is unset
	AutoHeight  bool     `yaml:"auto_height"`  // Fit height to content when height_ratio is unset
}

// KeysConfig holds picker key bindings in Vim key notation.
type KeysConfig struct {
	Down   []string `yaml:"down"`
	Up     []string `yaml:"up"`
	Commit []string `yaml:"commit"`
	Cancel []string `yaml:"cancel"`
}

// ProjectConfig holds project command runner settings.
type ProjectConfig struct {
	ScriptExt     string `yaml:"script_ext"`     // Extension of runnable scripts in the project root
	EnableScripts bool   `yaml:"enable_scripts"` // Seed the command list from scripts
	Title         string `yaml:"title"`          // Picker title
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (overrides default)
}

// DefaultProjectTitle is the project picker title. The quoted key name is
// highlighted.
const DefaultProjectTitle = "Project Command ('Ctrl+e' to close picker)"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Picker: PickerConfig{
			Border:     "rounded",
			AutoWidth:  true,
			AutoHeight: true,
		},
		Keys: KeysConfig{
			Down:   []string{"<C-j>", "<Down>"},
			Up:     []string{"<C-k>", "<Up>"},
			Commit: []string{"<CR>"},
			Cancel: []string{"<C-e>"},
		},
		Project: ProjectConfig{
			ScriptExt:     ".sh",
			EnableScripts: true,
			Title:         DefaultProjectTitle,
		},
		Log: LogConfig{
			Level: "info",
			File:  "", // Use default from paths
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "picker.border" or "keys.down".
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "picker":
		return c.getPickerField(field)
	case "keys":
		return c.getKeysField(field)
	case "project":
		return c.getProjectField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", unknownKey(key)
	}
}

// Set sets a configuration value by dot-separated key. List values are
// comma-separated.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "picker":
		return c.setPickerField(field, value)
	case "keys":
		return c.setKeysField(field, value)
	case "project":
		return c.setProjectField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return unknownKey(key)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getPickerField(field string) (string, error) {
	switch field {
	case "border":
		return c.Picker.Border, nil
	case "border_chars":
		return strings.Join(c.Picker.BorderChars, ","), nil
	case "width_ratio":
		return strconv.FormatFloat(c.Picker.WidthRatio, 'g', -1, 64), nil
	case "height_ratio":
		return strconv.FormatFloat(c.Picker.HeightRatio, 'g', -1, 64), nil
	case "auto_width":
		return strconv.FormatBool(c.Picker.AutoWidth), nil
	case "auto_height":
		return strconv.FormatBool(c.Picker.AutoHeight), nil
	default:
		return "", unknownKey("picker." + field)
	}
}

func (c *Config) setPickerField(field, value string) error {
	switch field {
	case "border":
		if _, err := layout.ParseBorder(value); err != nil {
			return fmt.Errorf("invalid border: %w", err)
		}
		c.Picker.Border = value
	case "border_chars":
		// Empty entries are kept: they leave an edge out.
		if value == "" {
			c.Picker.BorderChars = nil
			return nil
		}
		chars := strings.Split(value, ",")
		if _, err := layout.ParseBorderChars(chars); err != nil {
			return fmt.Errorf("invalid border_chars: %w", err)
		}
		c.Picker.BorderChars = chars
	case "width_ratio", "height_ratio":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		if !validRatio(v) {
			return fmt.Errorf("%s must be 0 (unset) or in (0,1] (got: %s)", field, value)
		}
		if field == "width_ratio" {
			c.Picker.WidthRatio = v
		} else {
			c.Picker.HeightRatio = v
		}
	case "auto_width", "auto_height":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		if field == "auto_width" {
			c.Picker.AutoWidth = v
		} else {
			c.Picker.AutoHeight = v
		}
	default:
		return unknownKey("picker." + field)
	}
	return nil
}

func (c *Config) keysField(field string) (*[]string, bool) {
	switch field {
	case "down":
		return &c.Keys.Down, true
	case "up":
		return &c.Keys.Up, true
	case "commit":
		return &c.Keys.Commit, true
	case "cancel":
		return &c.Keys.Cancel, true
	default:
		return nil, false
	}
}

func (c *Config) getKeysField(field string) (string, error) {
	keys, ok := c.keysField(field)
	if !ok {
		return "", unknownKey("keys." + field)
	}
	return strings.Join(*keys, ","), nil
}

func (c *Config) setKeysField(field, value string) error {
	keys, ok := c.keysField(field)
	if !ok {
		return unknownKey("keys." + field)
	}
	var out []string
	for _, k := range strings.Split(value, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return fmt.Errorf("keys.%s needs at least one key", field)
	}
	*keys = out
	return nil
}

func (c *Config) getProjectField(field string) (string, error) {
	switch field {
	case "script_ext":
		return c.Project.ScriptExt, nil
	case "enable_scripts":
		return strconv.FormatBool(c.Project.EnableScripts), nil
	case "title":
		return c.Project.Title, nil
	default:
		return "", unknownKey("project." + field)
	}
}

func (c *Config) setProjectField(field, value string) error {
	switch field {
	case "script_ext":
		if value != "" && !strings.HasPrefix(value, ".") {
			value = "." + value
		}
		c.Project.ScriptExt = value
	case "enable_scripts":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enable_scripts: %w", err)
		}
		c.Project.EnableScripts = v
	case "title":
		c.Project.Title = value
	default:
		return unknownKey("project." + field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", unknownKey("log." + field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return unknownKey("log." + field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := layout.ParseBorder(c.Picker.Border); err != nil {
		return fmt.Errorf("picker.border: %w", err)
	}
	if len(c.Picker.BorderChars) > 0 {
		if _, err := layout.ParseBorderChars(c.Picker.BorderChars); err != nil {
			return fmt.Errorf("picker.border_chars: %w", err)
		}
	}

	if !validRatio(c.Picker.WidthRatio) {
		return fmt.Errorf("picker.width_ratio must be 0 (unset) or in (0,1] (got: %v)", c.Picker.WidthRatio)
	}

	if !validRatio(c.Picker.HeightRatio) {
		return fmt.Errorf("picker.height_ratio must be 0 (unset) or in (0,1] (got: %v)", c.Picker.HeightRatio)
	}

	for _, f := range []string{"down", "up", "commit", "cancel"} {
		if keys, _ := c.keysField(f); len(*keys) == 0 {
			return fmt.Errorf("keys.%s needs at least one key", f)
		}
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	return nil
}

// Layout converts the picker section into a layout configuration.
// border_chars, when set, wins over the named border.
func (p PickerConfig) Layout() (layout.Config, error) {
	border, err := layout.ParseBorder(p.Border)
	if len(p.BorderChars) > 0 {
		border, err = layout.ParseBorderChars(p.BorderChars)
	}
	if err != nil {
		return layout.Config{}, err
	}
	cfg := layout.Config{
		Border:      border,
		WidthRatio:  p.WidthRatio,
		HeightRatio: p.HeightRatio,
		AutoWidth:   p.AutoWidth,
		AutoHeight:  p.AutoHeight,
	}
	return cfg, layout.Validate(cfg)
}

func validRatio(r float64) bool {
	return r == 0 || (!math.IsNaN(r) && r > 0 && r <= 1)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NVPICK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("NVPICK_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("NVPICK_BORDER"); v != "" {
		if _, err := layout.ParseBorder(v); err == nil {
			c.Picker.Border = v
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"picker.border",
		"picker.border_chars",
		"picker.width_ratio",
		"picker.height_ratio",
		"picker.auto_width",
		"picker.auto_height",
		"keys.down",
		"keys.up",
		"keys.commit",
		"keys.cancel",
		"project.script_ext",
		"project.enable_scripts",
		"project.title",
		"log.level",
		"log.file",
	}
}

// ErrUnknownKey is returned by Get and Set for keys that do not exist.
var ErrUnknownKey = errors.New("unknown config key")

// maxSuggestDistance bounds how far a typo may be from a real key.
const maxSuggestDistance = 3

func unknownKey(key string) error {
	if s := SuggestKey(key); s != "" {
		return fmt.Errorf("%w: %s (did you mean %s?)", ErrUnknownKey, key, s)
	}
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// SuggestKey returns the known key closest to key by edit distance, or ""
// when none is close.
func SuggestKey(key string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, k := range ListKeys() {
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
