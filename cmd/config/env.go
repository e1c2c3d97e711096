// Copyright 2025 Emiliano Spinella (eminwux)
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
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	defaultConfigDir  = "/etc/kraken"
	defaultConfigName = "config.yaml"
	defaultRunPath    = "/opt/kraken"
	defaultStoreFile  = "registry.json"
)

// Version is overridden at link time.
//
//nolint:gochecknoglobals // set via -ldflags
var Version = "dev"

type Var struct {
	Key        string // e.g. "KRAKEN_IMAGE_BASE"
	ViperKey   string // optional, e.g. "kraken/imageBase"
	Default    string // optional
	HasDefault bool
}

func DefineKV(envName, viperKey string, defaultVal ...string) Var {
	v := Var{Key: envName, ViperKey: viperKey}
	if len(defaultVal) > 0 {
		v.Default = defaultVal[0]
		v.HasDefault = true
	}
	return v
}

func (v *Var) EnvKey() string { return v.Key }

// ValueOrDefault defines precedence: viper (if ViperKey set and value present) → OS env → default → "".
func (v *Var) ValueOrDefault() string {
	if v.ViperKey != "" && viper.IsSet(v.ViperKey) {
		return viper.GetString(v.ViperKey)
	}
	if val, ok := os.LookupEnv(v.Key); ok {
		return val
	}
	if v.HasDefault {
		return v.Default
	}
	return ""
}

// BindEnv is safe if ViperKey is empty: does nothing.
func (v *Var) BindEnv() error {
	if v.ViperKey == "" {
		return nil
	}
	return viper.BindEnv(v.ViperKey, v.Key)
}

func (v *Var) Set(value string) error {
	return os.Setenv(v.Key, value)
}

// SetDefault registers the default with viper so it sits below flags, env and file.
func (v *Var) SetDefault() {
	if v.ViperKey != "" && v.HasDefault {
		viper.SetDefault(v.ViperKey, v.Default)
	}
}

func KV(v Var, value string) string { return v.Key + "=" + value }

func DefaultConfigFile() string {
	return filepath.Join(defaultConfigDir, defaultConfigName)
}

func DefaultRunPath() string {
	return defaultRunPath
}

// DefaultStorePath is the file registry location under runPath.
func DefaultStorePath(runPath string) string {
	if runPath == "" {
		runPath = defaultRunPath
	}
	return filepath.Join(runPath, defaultStoreFile)
}

// ---- Declare statically (Viper key optional per var) ----.
var (
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_VERBOSE = DefineKV("KRAKEN_VERBOSE", "kraken/verbose")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_CONFIG_FILE = DefineKV("KRAKEN_CONFIG_FILE", "kraken/configFile")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_LOG_LEVEL = DefineKV("KRAKEN_LOG_LEVEL", "kraken/logLevel", "info")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_LOG_FORMAT = DefineKV("KRAKEN_LOG_FORMAT", "kraken/logFormat", "text")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_RUN_PATH = DefineKV("KRAKEN_RUN_PATH", "kraken/runPath", defaultRunPath)
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_IMAGE_BASE = DefineKV("KRAKEN_IMAGE_BASE", "kraken/imageBase", "kraken")

	// Runtime
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_DOCKER_ENDPOINT = DefineKV("KRAKEN_DOCKER_ENDPOINT", "kraken/dockerEndpoint")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_BUILD_CONTEXT = DefineKV("KRAKEN_BUILD_CONTEXT", "kraken/buildContext", ".")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_DOCKERFILE = DefineKV("KRAKEN_DOCKERFILE", "kraken/dockerfile", "Dockerfile")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_SHM_SIZE = DefineKV("KRAKEN_SHM_SIZE", "kraken/shmSize", "2g")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_STOP_TIMEOUT = DefineKV("KRAKEN_STOP_TIMEOUT", "kraken/stopTimeout", "30s")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_CATALOG_FILE = DefineKV("KRAKEN_CATALOG_FILE", "kraken/catalogFile")

	// Registry
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_STORE_BACKEND = DefineKV("KRAKEN_STORE_BACKEND", "kraken/storeBackend", "file")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_STORE_PATH = DefineKV("KRAKEN_STORE_PATH", "kraken/storePath")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_MONGO_URI = DefineKV("KRAKEN_MONGO_URI", "kraken/mongoURI", "mongodb://localhost:27017")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_ROOT_MONGO_DATABASE = DefineKV("KRAKEN_MONGO_DATABASE", "kraken/mongoDatabase", "kraken")

	// Serve command variables
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_SERVE_LISTEN = DefineKV("KRAKEN_LISTEN", "kraken/serve/listen", ":5000")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_SERVE_WORKERS = DefineKV("KRAKEN_WORKERS", "kraken/serve/workers", "2")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_SERVE_QUEUE_SIZE = DefineKV("KRAKEN_QUEUE_SIZE", "kraken/serve/queueSize", "64")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_SERVE_NO_RECOVER = DefineKV("KRAKEN_NO_RECOVER", "kraken/serve/noRecover")

	// Init command variables
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_INIT_CLEAN = DefineKV("KRAKEN_INIT_CLEAN", "kraken/init/clean")

	// Get command variables
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_GET_OUTPUT = DefineKV("KRAKEN_GET_OUTPUT", "kraken/get/output", "yaml")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_GET_TOOL_FILTER = DefineKV("KRAKEN_GET_TOOL_FILTER", "kraken/get/tool/filter")
	//nolint:revive,gochecknoglobals,staticcheck // ignore linter warning about this variable
	KRAKEN_GET_BUILD_HISTORY = DefineKV("KRAKEN_GET_BUILD_HISTORY", "kraken/get/build/history")
)

// RootVars are bound to the environment before the config file is read.
//
//nolint:gochecknoglobals // static table
var RootVars = []*Var{
	&KRAKEN_ROOT_VERBOSE,
	&KRAKEN_ROOT_CONFIG_FILE,
	&KRAKEN_ROOT_LOG_LEVEL,
	&KRAKEN_ROOT_LOG_FORMAT,
	&KRAKEN_ROOT_RUN_PATH,
	&KRAKEN_ROOT_IMAGE_BASE,
	&KRAKEN_ROOT_DOCKER_ENDPOINT,
	&KRAKEN_ROOT_BUILD_CONTEXT,
	&KRAKEN_ROOT_DOCKERFILE,
	&KRAKEN_ROOT_SHM_SIZE,
	&KRAKEN_ROOT_STOP_TIMEOUT,
	&KRAKEN_ROOT_CATALOG_FILE,
	&KRAKEN_ROOT_STORE_BACKEND,
	&KRAKEN_ROOT_STORE_PATH,
	&KRAKEN_ROOT_MONGO_URI,
	&KRAKEN_ROOT_MONGO_DATABASE,
	&KRAKEN_SERVE_LISTEN,
	&KRAKEN_SERVE_WORKERS,
	&KRAKEN_SERVE_QUEUE_SIZE,
	&KRAKEN_SERVE_NO_RECOVER,
}

// BindEnvs binds every root variable to its environment name and registers
// its default.
func BindEnvs() error {
	for _, v := range RootVars {
		if err := v.BindEnv(); err != nil {
			return err
		}
		v.SetDefault()
	}
	return nil
}
