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

package kraken

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/eminwux/kraken/cmd/config"
	createcmd "github.com/eminwux/kraken/cmd/kraken/create"
	deletecmd "github.com/eminwux/kraken/cmd/kraken/delete"
	getcmd "github.com/eminwux/kraken/cmd/kraken/get"
	initcmd "github.com/eminwux/kraken/cmd/kraken/init"
	servecmd "github.com/eminwux/kraken/cmd/kraken/serve"
	"github.com/eminwux/kraken/cmd/kraken/shared"
	stopcmd "github.com/eminwux/kraken/cmd/kraken/stop"
	"github.com/eminwux/kraken/cmd/kraken/version"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type ConfigLoader interface {
	LoadConfig() error
}

// MockConfigLoaderKey is used to inject mock config loaders in tests via context.
type MockConfigLoaderKey struct{}

func NewKrakenCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "kraken",
		Short: "Kraken builds tool-set images and runs containers from them",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Check for mock config loader in context (for testing)
			var loader ConfigLoader
			if mockLoader, ok := cmd.Context().Value(MockConfigLoaderKey{}).(ConfigLoader); ok {
				loader = mockLoader
			} else {
				loader = &realConfigLoader{}
			}
			if err := loader.LoadConfig(); err != nil {
				return fmt.Errorf("%w: %w", errdefs.ErrConfig, err)
			}

			logger, levelVar := shared.NewLogger(viper.GetBool(config.KRAKEN_ROOT_VERBOSE.ViperKey))
			shared.WithLogger(cmd, logger, levelVar)
			logger.DebugContext(cmd.Context(), "configuration loaded",
				"configFile", viper.ConfigFileUsed(),
				"logLevel", levelVar.Level().String())
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	if err := SetupKrakenCmd(cmd); err != nil {
		return nil, fmt.Errorf("failed to setup kraken command: %w", err)
	}

	return cmd, nil
}

func SetupKrakenCmd(rootCmd *cobra.Command) error {
	rootCmd.AddCommand(servecmd.NewServeCmd())
	rootCmd.AddCommand(initcmd.NewInitCmd())
	rootCmd.AddCommand(createcmd.NewCreateCmd())
	rootCmd.AddCommand(getcmd.NewGetCmd())
	rootCmd.AddCommand(deletecmd.NewDeleteCmd())
	rootCmd.AddCommand(stopcmd.NewStopCmd())
	rootCmd.AddCommand(version.NewVersionCmd())

	return SetPersistentFlags(rootCmd)
}

type persistentFlag struct {
	name  string
	short string
	value string
	usage string
	v     *config.Var
}

func SetPersistentFlags(rootCmd *cobra.Command) error {
	flags := []persistentFlag{
		{"config", "", config.DefaultConfigFile(), "config file", &config.KRAKEN_ROOT_CONFIG_FILE},
		{"log-level", "", "info", "Log level (debug, info, warn, error)", &config.KRAKEN_ROOT_LOG_LEVEL},
		{"log-format", "", "text", "Log format (text, json)", &config.KRAKEN_ROOT_LOG_FORMAT},
		{"run-path", "", config.DefaultRunPath(), "Directory holding local kraken state", &config.KRAKEN_ROOT_RUN_PATH},
		{"image-base", "", "kraken", "Repository that prefixes every build name", &config.KRAKEN_ROOT_IMAGE_BASE},
		{"docker-endpoint", "", "", "Docker daemon address (default from DOCKER_HOST)", &config.KRAKEN_ROOT_DOCKER_ENDPOINT},
		{"build-context", "", ".", "Directory sent to the docker daemon as build context", &config.KRAKEN_ROOT_BUILD_CONTEXT},
		{"dockerfile", "", "Dockerfile", "Dockerfile path relative to the build context", &config.KRAKEN_ROOT_DOCKERFILE},
		{"shm-size", "", "2g", "Shared memory size given to image builds", &config.KRAKEN_ROOT_SHM_SIZE},
		{"stop-timeout", "", "30s", "Grace period before a stopping container is killed", &config.KRAKEN_ROOT_STOP_TIMEOUT},
		{"catalog", "", "", "Tool catalog YAML (default embedded catalog)", &config.KRAKEN_ROOT_CATALOG_FILE},
		{"store", "", "file", "Registry backend (file, mongo, memory)", &config.KRAKEN_ROOT_STORE_BACKEND},
		{"store-path", "", "", "File registry path (default <run-path>/registry.json)", &config.KRAKEN_ROOT_STORE_PATH},
		{"mongo-uri", "", "mongodb://localhost:27017", "MongoDB connection string", &config.KRAKEN_ROOT_MONGO_URI},
		{"mongo-database", "", "kraken", "MongoDB database name", &config.KRAKEN_ROOT_MONGO_DATABASE},
	}
	for _, f := range flags {
		rootCmd.PersistentFlags().StringP(f.name, f.short, f.value, f.usage)
		if err := viper.BindPFlag(f.v.ViperKey, rootCmd.PersistentFlags().Lookup(f.name)); err != nil {
			return err
		}
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	return viper.BindPFlag(config.KRAKEN_ROOT_VERBOSE.ViperKey, rootCmd.PersistentFlags().Lookup("verbose"))
}

type realConfigLoader struct{}

func (r *realConfigLoader) LoadConfig() error {
	return loadConfig()
}

func loadConfig() error {
	if err := config.BindEnvs(); err != nil {
		return err
	}

	configFile := viper.GetString(config.KRAKEN_ROOT_CONFIG_FILE.ViperKey)
	if configFile == "" {
		configFile = config.DefaultConfigFile()
	}
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		// File not found is OK: flags, env and defaults still apply.
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	return nil
}

// LoadConfig reads the config file named by --config or KRAKEN_CONFIG_FILE.
func LoadConfig() error {
	return loadConfig()
}
