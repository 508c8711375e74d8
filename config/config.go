// Package config loads the persisted startup defaults: device
// substring, resolution, output path and format. The pipeline never
// reads ambient state; the loaded struct is passed into the session
// explicitly.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"scankit/capture"
)

//go:embed schema.json
var schemaJSON string

// Config holds the startup defaults. Flags override individual fields.
type Config struct {
	Device string `json:"device"` // device code or substring; empty matches the first device
	DPI    [2]int `json:"dpi"`
	Output string `json:"output"`
	Format string `json:"format"` // "pdf" or "png"
}

// Default returns the compiled-in defaults used when no config file
// exists.
func Default() Config {
	return Config{
		DPI:    [2]int{300, 300},
		Output: "scan.pdf",
		Format: "pdf",
	}
}

func (c Config) Resolution() capture.Resolution {
	return capture.Resolution{X: c.DPI[0], Y: c.DPI[1]}
}

// Load reads the JSON config at path, validating it against the
// embedded schema before decoding. A missing file is not an error: the
// compiled-in defaults apply. A malformed or invalid file is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := validate(data); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func validate(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("config.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
