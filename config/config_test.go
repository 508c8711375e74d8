package config

import (
	"os"
	"path/filepath"
	"testing"

	"scankit/capture"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file must not error, got %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
	if cfg.Resolution() != (capture.Resolution{X: 300, Y: 300}) {
		t.Fatalf("default resolution = %v", cfg.Resolution())
	}
}

func TestLoadValidFile(t *testing.T) {
	path := writeConfig(t, `{
		"device": "airscan:e0",
		"dpi": [150, 150],
		"output": "pages.png",
		"format": "png"
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "airscan:e0" {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.Resolution() != (capture.Resolution{X: 150, Y: 150}) {
		t.Errorf("Resolution = %v", cfg.Resolution())
	}
	if cfg.Output != "pages.png" || cfg.Format != "png" {
		t.Errorf("Output/Format = %q/%q", cfg.Output, cfg.Format)
	}
}

func TestPartialFileKeepsRemainingDefaults(t *testing.T) {
	path := writeConfig(t, `{"device": "epson2"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "epson2" {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.Output != "scan.pdf" || cfg.Format != "pdf" {
		t.Errorf("unset fields lost their defaults: %+v", cfg)
	}
}

func TestSchemaRejectsInvalidFiles(t *testing.T) {
	bad := map[string]string{
		"zero dpi":       `{"dpi": [0, 300]}`,
		"one dpi value":  `{"dpi": [300]}`,
		"bad format":     `{"format": "tiff"}`,
		"unknown key":    `{"devcie": "typo"}`,
		"empty output":   `{"output": ""}`,
		"malformed json": `{"device": `,
	}
	for name, body := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("config %s accepted", body)
			}
		})
	}
}
