// elCall: a fast decoder for neural-network-based variant callers.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elcall/blob/master/LICENSE.txt>.

package cmd

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/exascience/elcall/internal"
)

// A Duration is a time.Duration that accepts the "30s"/"5m" notation
// in YAML files and environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the runtime tuning knobs that are not site-specific
// enough for command line flags. Values come from built-in defaults,
// then an optional YAML file, then ELCALL_* environment variables.
type Config struct {
	// BatchSize is the number of sites sent to the classifier per
	// prediction request.
	BatchSize int `yaml:"batch-size" envconfig:"batch_size"`

	// ClassifierTimeout bounds one prediction request.
	ClassifierTimeout Duration `yaml:"classifier-timeout" envconfig:"classifier_timeout"`

	// ClassifierRetries is the number of retries per prediction
	// request, with exponential backoff.
	ClassifierRetries uint64 `yaml:"classifier-retries" envconfig:"classifier_retries"`
}

// DefaultConfig returns the built-in runtime configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:         2048,
		ClassifierTimeout: Duration(5 * time.Minute),
		ClassifierRetries: 3,
	}
}

// LoadConfig resolves the runtime configuration. filename may be empty
// to skip the YAML layer.
func LoadConfig(filename string) (Config, error) {
	config := DefaultConfig()
	if filename != "" {
		file := internal.FileOpen(filename)
		defer internal.Close(file)
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return config, err
		}
	}
	if err := envconfig.Process("elcall", &config); err != nil {
		return config, err
	}
	return config, nil
}
