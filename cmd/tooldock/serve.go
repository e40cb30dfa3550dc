package main

import (
	"fmt"
	"os"

	"github.com/fazaimron27/tooldock/bootstrap"
	"github.com/fazaimron27/tooldock/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the module host server",
	Long: `Start the tooldock server.

The server will:
  - Load configuration from tooldock.yaml (or --config)
  - Or load configuration from TOOLDOCK_* environment variables
  - Connect to the database and discover modules
  - Install protected modules (if auto_install_protected is set)
  - Serve the module management API

Environment variables (for Docker deployments):
  TOOLDOCK_IMPORT_PREFIX    - Module import path prefix (required)
  TOOLDOCK_MODULES_DIR      - Modules directory (default: modules)
  TOOLDOCK_DATABASE_DSN     - Database path (default: tooldock.db)
  TOOLDOCK_SERVER_PORT      - Server port (default: 8080)
  TOOLDOCK_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  tooldock serve
  tooldock serve --config /etc/tooldock/config.yaml
  tooldock serve --hot-reload=false

  # Docker (env vars only):
  TOOLDOCK_IMPORT_PREFIX=example.com/app/modules tooldock serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	hasEnvConfig := config.HasEnvConfig()

	if !hasConfigFile && !hasEnvConfig {
		fmt.Println("No configuration found.")
		fmt.Println()
		fmt.Printf("Option 1: Create %s with a modules.import_prefix entry\n", cfgFile)
		fmt.Println("Option 2: Set TOOLDOCK_IMPORT_PREFIX environment variable")
		fmt.Println()
		fmt.Println("Example (env vars):")
		fmt.Println("  TOOLDOCK_IMPORT_PREFIX=example.com/app/modules tooldock serve")
		return nil
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
