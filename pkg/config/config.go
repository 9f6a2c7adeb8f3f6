// Package config loads YAML configuration files, expanding ${VAR}
// environment references before decoding.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that can check
// themselves after loading.
type Validator interface {
	Validate() error
}

// Load reads filename into target. ${VAR} references are expanded from
// the environment before decoding, and when target implements
// Validator the result is validated before returning.
func Load[T any](filename string, target *T) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}
	return validateTarget(target)
}

// LoadWithDefaults behaves like Load but falls back to defaultFile when
// filename does not exist.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	_, err := os.Stat(filename)
	switch {
	case err == nil:
		return Load(filename, target)
	case errors.Is(err, os.ErrNotExist) && defaultFile != "":
		return Load(defaultFile, target)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("config file not found: %s", filename)
	default:
		return fmt.Errorf("stat config file %s: %w", filename, err)
	}
}

// MustLoad is Load for startup paths where a broken config is fatal.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
}

func validateTarget(target any) error {
	v, ok := target.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
