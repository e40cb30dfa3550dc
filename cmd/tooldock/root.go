package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tooldock",
	Short: "Module host with lifecycle management, dependency validation, and registries",
	Long: `Tooldock hosts pluggable application modules.

Each module ships a module.json manifest declaring its name, version,
dependencies and registry contributions (settings, permissions, menu
entries, categories, roles, middleware, dashboard widgets). Tooldock
discovers manifests, validates dependencies against declared imports,
and drives modules through install, enable, disable and uninstall.

Quick start:
  tooldock serve          # Start the module host server
  tooldock mod list       # Show discovered modules and their state

Management:
  tooldock mod install    # Install a module (runs migrations)
  tooldock mod enable     # Activate an installed module
  tooldock validate       # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tooldock.yaml", "config file path")
}
