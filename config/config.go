// Copyright 2026 reelrank Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the service configuration from an optional file plus
// REELRANK_* environment variables, with built-in defaults for everything.
package config

import (
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	HttpHost       string        `mapstructure:"http_host"`
	HttpPort       int           `mapstructure:"http_port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// DataConfig configures dataset and snapshot locations and splitting.
type DataConfig struct {
	DatasetDir  string  `mapstructure:"dataset_dir"`
	SnapshotDir string  `mapstructure:"snapshot_dir"`
	SplitPolicy string  `mapstructure:"split_policy"` // temporal, random or leave-one-out
	TestRatio   float64 `mapstructure:"test_ratio"`
	SplitSeed   int64   `mapstructure:"split_seed"`
}

// RecommendConfig configures training and evaluation.
type RecommendConfig struct {
	Jobs        int   `mapstructure:"jobs"`
	EvalTopK    int   `mapstructure:"eval_top_k"`
	RandomState int64 `mapstructure:"random_state"`
}

func setDefault() {
	viper.SetDefault("server.http_host", "127.0.0.1")
	viper.SetDefault("server.http_port", 8087)
	viper.SetDefault("server.request_timeout", 10*time.Second)
	viper.SetDefault("server.cache_ttl", time.Minute)
	viper.SetDefault("data.dataset_dir", "data")
	viper.SetDefault("data.snapshot_dir", "snapshots")
	viper.SetDefault("data.split_policy", "temporal")
	viper.SetDefault("data.test_ratio", 0.2)
	viper.SetDefault("data.split_seed", 42)
	viper.SetDefault("recommend.jobs", 1)
	viper.SetDefault("recommend.eval_top_k", 10)
	viper.SetDefault("recommend.random_state", 42)
}

// LoadConfig loads the configuration. An empty path keeps defaults and
// environment overrides only.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetEnvPrefix("reelrank")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (conf *Config) validate() error {
	switch conf.Data.SplitPolicy {
	case "temporal", "random", "leave-one-out":
	default:
		return errors.NotValidf("split policy %q", conf.Data.SplitPolicy)
	}
	if conf.Data.TestRatio <= 0 || conf.Data.TestRatio >= 1 {
		return errors.NotValidf("test ratio %v outside (0, 1)", conf.Data.TestRatio)
	}
	if conf.Recommend.Jobs < 1 {
		return errors.NotValidf("jobs %d", conf.Recommend.Jobs)
	}
	return nil
}
