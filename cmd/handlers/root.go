/*
Copyright © 2025 Your Name

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
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"audiencelens/internal/config"
	"audiencelens/internal/logger"
)

var cfgFile string

// Version is set at build time with -ldflags "-X audiencelens/cmd/handlers.Version=..."
var Version = "dev"

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "audiencelens",
		Short: "Audiencelens segments social posts into audience clusters.",
		Long: `Audiencelens groups sentiment-annotated social posts into audience segments
and explains each segment with summary statistics, an archetype and a trend.

Posts come from a JSON file, a SQL table (PostgreSQL or SQLite) or the HTTP API.
Clustering uses K-Means++ or spectral clustering; quality is reported with the
silhouette score.`,
		SilenceUsage: true,
	}

	// Initialize configuration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.audiencelens.yaml)")

	rootCmd.AddCommand(NewClusterCmd())
	rootCmd.AddCommand(NewFeaturesCmd())
	rootCmd.AddCommand(NewImportCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging := config.GetLogging()
	logger.Configure(logging.Level, logging.Format)
	if config.IsDebugMode() {
		logger.Debug("Debug mode enabled")
	}

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
}
