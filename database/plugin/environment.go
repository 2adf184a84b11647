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
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Environment holds the process-wide dependencies given to plugins that are
// created from the registry
type Environment struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

var (
	environment      Environment
	environmentMutex sync.RWMutex
)

// SetEnvironment replaces the environment used by subsequently created plugins
func SetEnvironment(env Environment) {
	environmentMutex.Lock()
	defer environmentMutex.Unlock()
	environment = env
}

// GetEnvironment returns the current environment. The logger is never nil.
func GetEnvironment() Environment {
	environmentMutex.RLock()
	defer environmentMutex.RUnlock()
	ret := environment
	if ret.Logger == nil {
		ret.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return ret
}
