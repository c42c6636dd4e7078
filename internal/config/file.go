package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays the YAML document at path onto cfg. Keys absent from
// the file keep their current values; unknown keys are rejected so typos
// do not pass silently. Durations use Go syntax ("90s", "5m").
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return decode(f, path, cfg)
}

func decode(r io.Reader, name string, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file.
			return nil
		}
		return fmt.Errorf("parse config %s: %w", name, err)
	}
	return nil
}
