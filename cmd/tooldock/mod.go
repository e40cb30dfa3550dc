package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fazaimron27/tooldock/app"
	"github.com/fazaimron27/tooldock/bootstrap"
	"github.com/fazaimron27/tooldock/config"
	"github.com/spf13/cobra"
)

var modCmd = &cobra.Command{
	Use:   "mod",
	Short: "Manage modules",
	Long: `Manage the module lifecycle from the command line.

Examples:
  tooldock mod list
  tooldock mod install Blog
  tooldock mod install Blog --skip-scan
  tooldock mod enable Blog
  tooldock mod disable Blog
  tooldock mod uninstall Blog
  tooldock mod validate Blog
  tooldock mod discover`,
}

var (
	modSeed     bool
	modSkipScan bool
)

func init() {
	rootCmd.AddCommand(modCmd)

	installCmd := &cobra.Command{
		Use:   "install <name>",
		Short: "Install a module (runs its migrations and seeders)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				seed := a.Config.Modules.SeedOnInstall
				if cmd.Flags().Changed("seed") {
					seed = modSeed
				}
				if err := a.Lifecycle.Install(ctx, args[0], app.InstallOptions{
					WithSeed: seed,
					SkipScan: modSkipScan,
				}); err != nil {
					return err
				}
				fmt.Printf("Module %s installed and enabled\n", args[0])
				return nil
			})
		},
	}
	installCmd.Flags().BoolVar(&modSeed, "seed", true, "run the module's seeders after migrating")
	installCmd.Flags().BoolVar(&modSkipScan, "skip-scan", false, "skip the source dependency scan")
	modCmd.AddCommand(installCmd)

	modCmd.AddCommand(&cobra.Command{
		Use:   "enable <name>",
		Short: "Activate an installed module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				if err := a.Lifecycle.Enable(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Module %s enabled\n", args[0])
				return nil
			})
		},
	})

	modCmd.AddCommand(&cobra.Command{
		Use:   "disable <name>",
		Short: "Deactivate a module without removing its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				if err := a.Lifecycle.Disable(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Module %s disabled\n", args[0])
				return nil
			})
		},
	})

	modCmd.AddCommand(&cobra.Command{
		Use:   "uninstall <name>",
		Short: "Uninstall a module (rolls back migrations, removes registry rows)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				if err := a.Lifecycle.Uninstall(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Module %s uninstalled\n", args[0])
				return nil
			})
		},
	})

	modCmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Forget an uninstalled module's status row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				if err := a.Lifecycle.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Module %s removed\n", args[0])
				return nil
			})
		},
	})

	modCmd.AddCommand(&cobra.Command{
		Use:   "validate <name>",
		Short: "Check a module's dependencies without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				desc, ok := a.Catalog.Get(args[0])
				if !ok {
					return fmt.Errorf("module %s not found", args[0])
				}
				deps, err := a.Validator.Validate(ctx, desc, false)
				if err != nil {
					return err
				}
				if len(deps) == 0 {
					fmt.Printf("Module %s has no dependencies\n", desc.Name)
					return nil
				}
				fmt.Printf("Module %s depends on: %s\n", desc.Name, strings.Join(deps, ", "))
				return nil
			})
		},
	})

	modCmd.AddCommand(&cobra.Command{
		Use:   "seed [name]",
		Short: "Re-sync registry rows from module declarations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				if len(args) == 1 {
					if err := a.Registries.SeedModule(ctx, args[0], true); err != nil {
						return err
					}
					fmt.Printf("Module %s registries seeded\n", args[0])
					return nil
				}
				if err := a.Registries.SeedAll(ctx, true); err != nil {
					return err
				}
				fmt.Println("All registries seeded")
				return nil
			})
		},
	})

	modCmd.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "Rescan the modules directory for manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *bootstrap.App) error {
				descriptors := a.Catalog.All()
				fmt.Printf("Discovered %d module(s)\n", len(descriptors))
				orphans, err := a.Discovery.Orphans(ctx)
				if err != nil {
					return err
				}
				for _, st := range orphans {
					fmt.Printf("  warning: %s has a status row but no manifest on disk\n", st.Name)
				}
				return nil
			})
		},
	})

	modCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List modules and their lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(runModList)
		},
	})
}

func runModList(ctx context.Context, a *bootstrap.App) error {
	descriptors := a.Catalog.All()
	if len(descriptors) == 0 {
		fmt.Println("No modules found.")
		fmt.Printf("Modules directory: %s\n", a.Config.Modules.Dir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tSTATE\tPROTECTED\tREQUIRES")
	for _, desc := range descriptors {
		state := "uninstalled"
		if st, err := a.Status.Get(ctx, desc.Name); err == nil {
			state = st.State().String()
		}
		protected := ""
		if desc.Protected {
			protected = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			desc.Name, desc.Version, state, protected, strings.Join(desc.Requires, ", "))
	}
	return w.Flush()
}

// withApp wires the full application against the configured database, runs
// discovery, and hands control to fn. Server startup is skipped.
func withApp(fn func(ctx context.Context, a *bootstrap.App) error) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	// CLI runs stay quiet unless something goes wrong.
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "console"

	a, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}
	defer a.Shutdown()

	ctx := context.Background()
	if err := a.Discover(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}
