package main

import (
	"commute-eta-service/internal/app"
	"commute-eta-service/internal/config"
	"commute-eta-service/internal/platform/log"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	logOpts := log.NewOptions()
	logOpts.Level = "warn"

	root := &cobra.Command{
		Use:           "dbtool",
		Short:         "Maintain the commute database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := logOpts.Validate(); err != nil {
				return err
			}
			return log.Init(logOpts)
		},
	}
	logOpts.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newInitSchemaCommand(),
		newListCommand(),
		newDeparturesCommand(),
		newExportCommand(),
		newImportCommand(),
		newPurgeCacheCommand(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Load()
	return cfg, err
}

// withApp builds the service graph for one command and closes it after.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(a)
}

func newInitSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create tables and indexes if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Initializing database schema...")
			conn, dialect, err := app.OpenDB(cfg)
			if err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
			defer conn.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s).\n", dialect)
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current user's routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				routes, err := a.RouteService.List(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), routesTable(routes))
				return nil
			})
		},
	}
}

func newDeparturesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "departures",
		Short: "Run one refresh cycle and print the departure board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				report, err := a.Orchestrator.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				routes, err := a.RouteService.List(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, departuresTable(routes, a.Orchestrator.Snapshot(), a.Policy, a.Now()))
				fmt.Fprintf(out, "\ncycle %s: %d routes, %d ok, %d failed\n",
					report.ID, report.Routes, report.Succeeded, report.Failed)
				return nil
			})
		},
	}
}

func newExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current user's routes as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				exp, err := a.RouteService.Export(cmd.Context())
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("export: %w", err)
					}
					defer f.Close()
					w = f
				}

				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(exp)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, or - for stdout.")
	return cmd
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the current user's routes with an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				routes, err := a.RouteService.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d routes.\n", len(routes))
				return nil
			})
		},
	}
}

func newPurgeCacheCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-cache",
		Short: "Delete expired rows from the SQL travel time cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if a.TravelCache == nil {
					return fmt.Errorf("purge-cache needs TRAVEL_CACHE=sql, got %q", a.Config.TravelCache)
				}
				n, err := a.TravelCache.Purge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached travel times.\n", n)
				return nil
			})
		},
	}
}
