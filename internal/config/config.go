package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/posterforge/internal/types"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`

	ChannelURL        string `json:"channel_url"`
	Channel           string `json:"channel"`
	CommandTimeoutSec int    `json:"command_timeout_sec"`

	ContentFile   string   `json:"content_file"`
	Poster        string   `json:"poster"`
	Languages     []string `json:"languages"`
	OutputDir     string   `json:"output_dir"`
	ExportFormat  string   `json:"export_format"`
	ResizePadding float64  `json:"resize_padding"`

	Assets struct {
		Dir              string `json:"dir"`
		BaseURL          string `json:"base_url"`
		Listen           string `json:"listen"`
		InlineIntervalMS int    `json:"inline_interval_ms"`
	} `json:"assets"`

	Mapping types.Mapping `json:"mapping"`

	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
}

func Load(path string) (*Config, error) {
	home := os.Getenv("HOME")
	cfg := &Config{
		DataDir:           filepath.Join(home, ".posterforge"),
		LogLevel:          "info",
		ChannelURL:        "ws://localhost:3055",
		Channel:           "posterforge",
		CommandTimeoutSec: 30,
		Languages:         []string{"en"},
		OutputDir:         filepath.Join(home, ".posterforge", "exports"),
		ExportFormat:      "PNG",
		ResizePadding:     48,
		Mapping:           types.DefaultMapping(),
	}
	cfg.Assets.Listen = "localhost:3056"
	cfg.Assets.InlineIntervalMS = 2000

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if url := os.Getenv("POSTERFORGE_CHANNEL_URL"); url != "" {
		cfg.ChannelURL = url
	}
	if ch := os.Getenv("POSTERFORGE_CHANNEL"); ch != "" {
		cfg.Channel = ch
	}
	if content := os.Getenv("POSTERFORGE_CONTENT"); content != "" {
		cfg.ContentFile = content
	}
	if out := os.Getenv("POSTERFORGE_OUTPUT_DIR"); out != "" {
		cfg.OutputDir = out
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}

// toFlat marshals a Config through JSON into a flat dot-key map.
func toFlat(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var nested map[string]any
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return Flatten(nested), nil
}

// ListValues returns the config as a flat dot-key map, optionally masking
// secrets for display.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	flat, err := toFlat(cfg)
	if err != nil {
		return nil, err
	}
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads one dot-separated key from the config file at path.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := toFlat(cfg)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return v, nil
}

// SetValue updates one dot-separated key in the config file at path,
// preserving every other value. The raw string is coerced to the field's
// JSON type where possible.
func SetValue(path, key, value string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	flat, err := toFlat(cfg)
	if err != nil {
		return err
	}
	if _, ok := flat[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	flat[key] = coerce(value)

	nested := Unflatten(flat)
	data, err := json.Marshal(nested)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	updated := &Config{}
	if err := json.Unmarshal(data, updated); err != nil {
		return fmt.Errorf("apply config value: %w", err)
	}
	return writeDefaults(path, updated)
}

// coerce interprets a CLI-provided string as a JSON scalar when it parses
// as one, otherwise keeps it a string.
func coerce(value string) any {
	trimmed := strings.TrimSpace(value)
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		switch v.(type) {
		case bool, float64, nil:
			return v
		}
	}
	return value
}
