package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChannelURL != "ws://localhost:3055" {
		t.Errorf("unexpected default channel url %q", cfg.ChannelURL)
	}
	if cfg.Mapping.ImageSlotPrefix != "imgSlot" {
		t.Errorf("default mapping missing, got %+v", cfg.Mapping)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults not written: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"channel": "poster-7", "mapping": {"max_image_slots": 6}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Channel != "poster-7" {
		t.Errorf("file value ignored: %q", cfg.Channel)
	}
	if cfg.Mapping.MaxImageSlots != 6 {
		t.Errorf("nested file value ignored: %d", cfg.Mapping.MaxImageSlots)
	}
	// Untouched fields keep defaults.
	if cfg.ChannelURL != "ws://localhost:3055" {
		t.Errorf("default lost: %q", cfg.ChannelURL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"channel": "from-file"}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POSTERFORGE_CHANNEL", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Channel != "from-env" {
		t.Errorf("env must win over file, got %q", cfg.Channel)
	}
}

func TestListValuesMasksSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123456:secret-token"

	flat, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("list values: %v", err)
	}
	got, ok := flat["telegram.token"].(string)
	if !ok || got != "***oken" {
		t.Errorf("token not masked: %v", flat["telegram.token"])
	}

	unmasked, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("list values: %v", err)
	}
	if unmasked["telegram.token"] != "123456:secret-token" {
		t.Errorf("unmasked listing wrong: %v", unmasked["telegram.token"])
	}
}

func TestGetSetValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}

	if err := SetValue(path, "channel", "poster-9"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := GetValue(path, "channel")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "poster-9" {
		t.Errorf("round trip failed: %v", v)
	}

	if err := SetValue(path, "mapping.max_image_slots", "8"); err != nil {
		t.Fatalf("set numeric: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mapping.MaxImageSlots != 8 {
		t.Errorf("numeric coercion failed: %d", cfg.Mapping.MaxImageSlots)
	}

	if err := SetValue(path, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := GetValue(path, "no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	nested := map[string]any{
		"a": map[string]any{"b": "x", "c": float64(2)},
		"d": true,
	}
	flat := Flatten(nested)
	if flat["a.b"] != "x" || flat["a.c"] != float64(2) || flat["d"] != true {
		t.Errorf("flatten wrong: %v", flat)
	}
	back := Unflatten(flat)
	inner, ok := back["a"].(map[string]any)
	if !ok || inner["b"] != "x" {
		t.Errorf("unflatten wrong: %v", back)
	}
}
