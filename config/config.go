// Copyright 2026 The Timepace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the demo process's YAML configuration.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/streamforge/timepace/errs"
	"github.com/streamforge/timepace/interp"
)

// Config is the demo process's top-level configuration.
type Config struct {
	Latency     int64  `yaml:"latency_usecs"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsAddr string `yaml:"metrics_addr"`
	DiagAddr    string `yaml:"diag_addr"`
	NodeID      string `yaml:"node_id"`
	Source      string `yaml:"source"`
	FrameUsecs  int64  `yaml:"frame_usecs"`
}

// Load reads and parses the YAML file at path, applying defaults to any
// zero-valued field.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errs.ErrNoConfig
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.ErrCouldNotParseConfig(err)
	}

	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errs.ErrCouldNotParseConfig(err)
	}

	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Latency <= 0 {
		c.Latency = interp.DefaultAudioLatency
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.DiagAddr == "" {
		c.DiagAddr = ":9091"
	}
	if c.NodeID == "" {
		c.NodeID = "timepace-demo"
	}
	if c.Source == "" {
		c.Source = "ticker"
	}
	if c.FrameUsecs <= 0 {
		c.FrameUsecs = 20_000
	}
}
