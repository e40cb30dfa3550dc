package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fazaimron27/tooldock/adapters/manifest"
	"github.com/fazaimron27/tooldock/adapters/sqlite"
	"github.com/fazaimron27/tooldock/config"
	"github.com/spf13/cobra"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var validateCheckDatabase bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the tooldock configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Module manifests parse
  - Database is writable (optional)

Examples:
  tooldock validate
  tooldock validate --config /etc/tooldock/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	descriptors, err := manifest.NewLoader().LoadAll(cfg.Modules.Dir)
	if err != nil {
		fmt.Printf("  %s Module manifests parse\n", crossMark)
		return fmt.Errorf("manifest error: %w", err)
	}
	fmt.Printf("  %s Module manifests parse (%d found)\n", checkMark, len(descriptors))

	if validateCheckDatabase {
		if err := checkDatabase(cfg.Database.DSN); err != nil {
			fmt.Printf("  %s Database writable\n", crossMark)
			return fmt.Errorf("database error: %w", err)
		}
		fmt.Printf("  %s Database writable\n", checkMark)
	}

	fmt.Println("\nConfiguration valid")
	fmt.Printf("  Modules dir:   %s\n", cfg.Modules.Dir)
	fmt.Printf("  Import prefix: %s\n", cfg.Modules.ImportPrefix)
	fmt.Printf("  Database:      %s\n", cfg.Database.DSN)
	return nil
}

func checkDatabase(dsn string) error {
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Ping()
}
