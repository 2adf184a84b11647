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

package plugin

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

// EnvVarPrefix starts the name of every plugin option environment variable
const EnvVarPrefix = "TALLY_DATABASE"

// PluginOption is a setting of a plugin. Dest points to a variable of the
// Go type matching Type.
type PluginOption struct {
	Name         string
	Type         PluginOptionType
	Description  string
	DefaultValue any
	Dest         any
	// CustomEnvVar overrides the generated environment variable name
	CustomEnvVar string
}

// FlagName returns the command line flag for the option, such as
// "blob-badger-data-dir"
func (p *PluginOption) FlagName(pluginType PluginType, pluginName string) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(pluginType),
		pluginName,
		p.Name,
	)
}

// EnvVarName returns the environment variable for the option, such as
// TALLY_DATABASE_BLOB_BADGER_DATA_DIR
func (p *PluginOption) EnvVarName(pluginType PluginType, pluginName string) string {
	if p.CustomEnvVar != "" {
		return p.CustomEnvVar
	}
	name := strings.Join(
		[]string{
			EnvVarPrefix,
			PluginTypeName(pluginType),
			pluginName,
			p.Name,
		},
		"_",
	)
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// AddToFlagSet registers the option as a flag bound directly to Dest
func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType PluginType,
	pluginName string,
) error {
	flagName := p.FlagName(pluginType, pluginName)
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *string", flagName)
		}
		defVal, _ := p.DefaultValue.(string)
		fs.StringVar(dest, flagName, defVal, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *bool", flagName)
		}
		defVal, _ := p.DefaultValue.(bool)
		fs.BoolVar(dest, flagName, defVal, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *int", flagName)
		}
		defVal, _ := p.DefaultValue.(int)
		fs.IntVar(dest, flagName, defVal, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination for option %s: expected *uint64", flagName)
		}
		defVal, _ := p.DefaultValue.(uint64)
		fs.Uint64Var(dest, flagName, defVal, p.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, flagName)
	}
	return nil
}

// setValue assigns value to Dest. Numeric values decoded from YAML or TOML
// are converted, and strings are parsed for non-string options.
func (p *PluginOption) setValue(value any) error {
	if p.Dest == nil {
		return fmt.Errorf("nil destination for option %s", p.Name)
	}
	switch p.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected string", p.Name)
		}
		dest, ok := p.Dest.(*string)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination type for option %s: expected *string", p.Name)
		}
		*dest = v
	case PluginOptionTypeBool:
		var v bool
		switch tv := value.(type) {
		case bool:
			v = tv
		case string:
			tmpBool, err := strconv.ParseBool(tv)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			v = tmpBool
		default:
			return fmt.Errorf("invalid type for option %s: expected bool", p.Name)
		}
		dest, ok := p.Dest.(*bool)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination type for option %s: expected *bool", p.Name)
		}
		*dest = v
	case PluginOptionTypeInt:
		v, err := toInt64(value)
		if err != nil {
			return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
		}
		if v < math.MinInt || v > math.MaxInt {
			return fmt.Errorf("invalid value for option %s: out of range", p.Name)
		}
		dest, ok := p.Dest.(*int)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination type for option %s: expected *int", p.Name)
		}
		*dest = int(v)
	case PluginOptionTypeUint:
		var v uint64
		switch tv := value.(type) {
		case uint64:
			v = tv
		case string:
			tmpUint, err := strconv.ParseUint(tv, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			v = tmpUint
		default:
			tmpInt, err := toInt64(value)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			if tmpInt < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", p.Name)
			}
			v = uint64(tmpInt)
		}
		dest, ok := p.Dest.(*uint64)
		if !ok || dest == nil {
			return fmt.Errorf("invalid destination type for option %s: expected *uint64", p.Name)
		}
		*dest = v
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
	return nil
}

func toInt64(value any) (int64, error) {
	switch tv := value.(type) {
	case int:
		return int64(tv), nil
	case int64:
		return tv, nil
	case uint64:
		if tv > math.MaxInt64 {
			return 0, errors.New("value out of range")
		}
		return int64(tv), nil
	case float64:
		if tv != math.Trunc(tv) || tv > math.MaxInt64 || tv < math.MinInt64 {
			return 0, fmt.Errorf("not an integer: %v", tv)
		}
		return int64(tv), nil
	case string:
		return strconv.ParseInt(tv, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", value)
	}
}

// PopulateCmdlineOptions adds a flag for every option of every registered plugin
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		for i := range entry.Options {
			if err := entry.Options[i].AddToFlagSet(fs, entry.Type, entry.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin sections from a config file. The map is
// keyed by plugin type name ("blob" or "metadata"), then plugin name, then
// option name.
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(entry.Type)]
		if !ok {
			continue
		}
		optionValues, ok := typeConfig[entry.Name]
		if !ok {
			continue
		}
		for i := range entry.Options {
			opt := &entry.Options[i]
			// Config files may use either dashes or underscores
			value, ok := optionValues[opt.Name]
			if !ok {
				value, ok = optionValues[strings.ReplaceAll(opt.Name, "-", "_")]
			}
			if !ok {
				continue
			}
			if err := opt.setValue(value); err != nil {
				return fmt.Errorf(
					"%s plugin '%s': %w",
					PluginTypeName(entry.Type),
					entry.Name,
					err,
				)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from environment variables
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		for i := range entry.Options {
			opt := &entry.Options[i]
			value, ok := os.LookupEnv(opt.EnvVarName(entry.Type, entry.Name))
			if !ok {
				continue
			}
			if err := opt.setValue(value); err != nil {
				return fmt.Errorf(
					"environment variable %s: %w",
					opt.EnvVarName(entry.Type, entry.Name),
					err,
				)
			}
		}
	}
	return nil
}
