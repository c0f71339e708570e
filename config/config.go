// Licensed under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package config loads the optional yaml configuration file that names the
// catalogs the bridge can reach and the scan and write defaults.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	cfgFile           = ".parqbridge.yaml"
	defaultMaxWorkers = 5
	defaultBatchSize  = 1024
	defaultCodec      = "zstd"
)

type Config struct {
	DefaultCatalog string                   `yaml:"default-catalog"`
	Catalogs       map[string]CatalogConfig `yaml:"catalog"`

	// scan defaults
	MaxWorkers      int  `yaml:"max-workers"`
	PushdownEnabled bool `yaml:"pushdown-enabled"`

	// write defaults
	Codec     string `yaml:"compression-codec"`
	BatchSize int    `yaml:"batch-size"`
}

type CatalogConfig struct {
	CatalogType string `yaml:"type"`
	URI         string `yaml:"uri"`
	Warehouse   string `yaml:"warehouse"`
}

func LoadConfig(configPath string) []byte {
	var path string
	if len(configPath) > 0 {
		path = configPath
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(homeDir, cfgFile)
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	return file
}

func ParseConfig(file []byte, catalogName string) *CatalogConfig {
	var config Config
	err := yaml.Unmarshal(file, &config)
	if err != nil {
		return nil
	}
	res, ok := config.Catalogs[catalogName]
	if !ok {
		return nil
	}

	return &res
}

func fromConfigFiles() Config {
	dir := os.Getenv("PARQBRIDGE_HOME")
	if dir != "" {
		dir = filepath.Join(dir, cfgFile)
	}

	cfg := Config{PushdownEnabled: true}
	if err := yaml.Unmarshal(LoadConfig(dir), &cfg); err != nil {
		return cfg
	}

	if cfg.DefaultCatalog == "" {
		cfg.DefaultCatalog = "default"
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Codec == "" {
		cfg.Codec = defaultCodec
	}

	return cfg
}

var EnvConfig = fromConfigFiles()
