// Copyright 2026 Blink Labs Software
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

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/database/plugin"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "tally.config"

const (
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	DefaultShutdownTimeout = "30s"
	envPrefix              = "tally"
)

var ErrInvalidConfig = errors.New("invalid config")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// tempConfig splits plugin sections from the main config
type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// DeploymentConfig holds the parameters used by "tally init"
type DeploymentConfig struct {
	Chairman      string `yaml:"chairman"`
	TokenName     string `yaml:"tokenName"     split_words:"true"`
	TokenSymbol   string `yaml:"tokenSymbol"   split_words:"true"`
	InitialSupply uint64 `yaml:"initialSupply" split_words:"true"`
	MinimumQuorum uint64 `yaml:"minimumQuorum" split_words:"true"`
	VotingPeriod  string `yaml:"votingPeriod"  split_words:"true"`
}

type Config struct {
	DatabasePath    string           `yaml:"databasePath"    split_words:"true"`
	BlobPlugin      string           `yaml:"blobPlugin"      envconfig:"TALLY_DATABASE_BLOB_PLUGIN"`
	MetadataPlugin  string           `yaml:"metadataPlugin"  envconfig:"TALLY_DATABASE_METADATA_PLUGIN"`
	BindAddr        string           `yaml:"bindAddr"        split_words:"true"`
	ApiPort         uint             `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint             `yaml:"metricsPort"     split_words:"true"`
	ShutdownTimeout string           `yaml:"shutdownTimeout" split_words:"true"`
	Tracing         bool             `yaml:"tracing"`
	TracingStdout   bool             `yaml:"tracingStdout"   split_words:"true"`
	Deployment      DeploymentConfig `yaml:"deployment"`
}

// DefaultConfig returns a config holding the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    ".tally",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "0.0.0.0",
		ApiPort:         8080,
		MetricsPort:     12799,
		ShutdownTimeout: DefaultShutdownTimeout,
		Deployment: DeploymentConfig{
			TokenName:     asset.DefaultName,
			TokenSymbol:   asset.DefaultSymbol,
			InitialSupply: tally.DefaultInitialSupply,
			MinimumQuorum: tally.DefaultMinimumQuorum,
			VotingPeriod:  tally.DefaultVotingPeriod.String(),
		},
	}
}

// LoadConfig builds the config from the defaults, then the config file, then
// environment variables. Without a config file path, ~/.tally/tally.yaml
// and /etc/tally/tally.yaml are tried in order.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := readConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(buf); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	var candidates []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".tally", "tally.yaml"))
	}
	candidates = append(candidates, "/etc/tally/tally.yaml")
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// readConfigFile returns the file as YAML. TOML files are converted so that
// both formats share one schema.
func readConfigFile(configFile string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(configFile), ".toml") {
		var raw map[string]any
		if _, err := toml.DecodeFile(configFile, &raw); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		buf, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("error converting config file: %w", err)
		}
		return buf, nil
	}
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return buf, nil
}

func (c *Config) apply(buf []byte) error {
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	// A "config" section holds the main config, otherwise the whole file does
	if tempCfg.Config != nil {
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, c); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			name, sections := pluginSections("blob", tempCfg.Database.Blob)
			if name != "" {
				c.BlobPlugin = name
			}
			pluginConfig["blob"] = mergeSections(pluginConfig["blob"], sections)
		}
		if tempCfg.Database.Metadata != nil {
			name, sections := pluginSections("metadata", tempCfg.Database.Metadata)
			if name != "" {
				c.MetadataPlugin = name
			}
			pluginConfig["metadata"] = mergeSections(pluginConfig["metadata"], sections)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// pluginSections splits a database section into the selected plugin name
// and the per-plugin option maps
func pluginSections(kind string, section map[string]any) (string, map[string]map[string]any) {
	var name string
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			if s, ok := v.(string); ok {
				name = s
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			converted := make(map[string]any, len(val))
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					converted[keyStr] = vv
				}
			}
			ret[k] = converted
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				kind, k, v,
			)
		}
	}
	return name, ret
}

func mergeSections(dst, src map[string]map[string]any) map[string]map[string]any {
	if dst == nil {
		return src
	}
	maps.Copy(dst, src)
	return dst
}

// Validate checks the values that are parsed lazily
func (c *Config) Validate() error {
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Deployment.votingPeriod(); err != nil {
		return err
	}
	if c.Deployment.Chairman != "" && !common.IsHexAddress(c.Deployment.Chairman) {
		return fmt.Errorf(
			"%w: deployment chairman %q is not an address",
			ErrInvalidConfig,
			c.Deployment.Chairman,
		)
	}
	return nil
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: shutdown timeout: %w", ErrInvalidConfig, err)
	}
	return d, nil
}

func (d DeploymentConfig) votingPeriod() (time.Duration, error) {
	if d.VotingPeriod == "" {
		return tally.DefaultVotingPeriod, nil
	}
	period, err := time.ParseDuration(d.VotingPeriod)
	if err != nil {
		return 0, fmt.Errorf("%w: voting period: %w", ErrInvalidConfig, err)
	}
	if period <= 0 {
		return 0, fmt.Errorf("%w: voting period must be positive", ErrInvalidConfig)
	}
	return period, nil
}

// ToDeployment converts the section for tally.Node.Init. A non-zero
// deployer overrides the configured chairman.
func (d DeploymentConfig) ToDeployment(deployer common.Address) (tally.Deployment, error) {
	if deployer == (common.Address{}) {
		if !common.IsHexAddress(d.Chairman) {
			return tally.Deployment{}, fmt.Errorf(
				"%w: no chairman address configured",
				ErrInvalidConfig,
			)
		}
		deployer = common.HexToAddress(d.Chairman)
	}
	period, err := d.votingPeriod()
	if err != nil {
		return tally.Deployment{}, err
	}
	ret := tally.DefaultDeployment(deployer)
	ret.VotingPeriod = period
	if d.TokenName != "" {
		ret.TokenName = d.TokenName
	}
	if d.TokenSymbol != "" {
		ret.TokenSymbol = d.TokenSymbol
	}
	if d.InitialSupply > 0 {
		ret.InitialSupply = d.InitialSupply
	}
	if d.MinimumQuorum > 0 {
		ret.MinimumQuorum = d.MinimumQuorum
	}
	return ret, nil
}
