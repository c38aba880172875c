package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file or flags override it.
func Default() Configuration {
	return Configuration{
		Model:          "tts-1",
		MaxChunkLen:    800,
		MaxAttempts:    3,
		RequestTimeout: 120,
		RetryDelay:     2,
		RequestDelay:   500,
		Bitrate:        "128k",
	}
}

// FromFile loads a YAML configuration file on top of the defaults.
// The YAML is unmarshalled generically and re-decoded through JSON with
// unknown fields disallowed, so a typo in a field name fails loudly instead
// of being silently ignored.
func FromFile(path string) (Configuration, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	m := map[string]any{}

	err = yaml.Unmarshal(b, &m)
	if err != nil {
		return cfg, fmt.Errorf("read config at %s: %w", path, err)
	}

	b, err = json.Marshal(m)
	if err != nil {
		return cfg, fmt.Errorf("load config: marshal config: %w", err)
	}

	d := json.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()

	err = d.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config at %s: %w", path, err)
	}

	return cfg, nil
}
