/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the daemon's YAML configuration, following the
// shape of sptp/client/config.go: a struct with yaml tags, defaults
// assigned before unmarshaling, and a single ReadConfig entrypoint.
package config

import (
	"fmt"
	"os"
	"time"

	version "github.com/hashicorp/go-version"
	yaml "gopkg.in/yaml.v2"
)

// minSchemaVersion is the oldest config schema this daemon still
// understands. Bumped whenever a breaking config change ships.
const minSchemaVersion = "1.0.0"

// PeerConfig describes one configured NTP association.
type PeerConfig struct {
	Address  string `yaml:"address"`
	MinPoll  int8   `yaml:"min_poll"`
	MaxPoll  int8   `yaml:"max_poll"`
	Burst    uint8  `yaml:"burst"`
	Prefer   bool   `yaml:"prefer"`
}

// RefclockConfig describes a local serial/PPS reference clock, fed into
// selection as a synthetic stratum-0 peer (internal/refclock).
type RefclockConfig struct {
	Device   string        `yaml:"device"`
	BaudRate int           `yaml:"baud_rate"`
	Stratum  uint8         `yaml:"stratum"`
	Poll     time.Duration `yaml:"poll"`
}

// Config is the top-level daemon configuration.
type Config struct {
	SchemaVersion   string           `yaml:"schema_version"`
	SystemPrecision time.Duration    `yaml:"system_precision"`
	Peers           []PeerConfig     `yaml:"peers"`
	Refclocks       []RefclockConfig `yaml:"refclocks"`
	MetricsAddr     string           `yaml:"metrics_addr"`
}

// ReadConfig reads and validates the daemon configuration from path.
func ReadConfig(path string) (*Config, error) {
	c := &Config{
		SchemaVersion:   minSchemaVersion,
		SystemPrecision: time.Microsecond,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := checkSchemaVersion(c.SchemaVersion); err != nil {
		return nil, err
	}
	return c, nil
}

// checkSchemaVersion rejects configs older than minSchemaVersion.
func checkSchemaVersion(raw string) error {
	got, err := version.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("config: invalid schema_version %q: %w", raw, err)
	}
	min, err := version.NewVersion(minSchemaVersion)
	if err != nil {
		return err
	}
	if got.LessThan(min) {
		return fmt.Errorf("config: schema_version %s is older than the minimum supported %s", got, min)
	}
	return nil
}
