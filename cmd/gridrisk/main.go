// Command gridrisk is the operator CLI: it generates synthetic datasets and
// scores, prices and exports equipment files without running the service.
package main

import (
	"os"
	"time"

	"github.com/couchcryptid/grid-risk-dashboard/internal/export"
	"github.com/couchcryptid/grid-risk-dashboard/internal/store"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gridrisk",
		Short:        "Grid equipment risk scoring and cost tooling",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(costCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	opts := store.DefaultGeneratorOptions()
	var target generateTarget

	cmd := &cobra.Command{
		Use:   "generate [output-file]",
		Short: "Write a synthetic equipment dataset (.csv, .json, .yaml) or seed a Postgres table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				target.path = args[0]
			}
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), target, opts, time.Now())
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", opts.Count, "number of equipment records")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	cmd.Flags().StringVar(&target.dsn, "postgres-dsn", "", "seed the equipment table at this Postgres DSN")
	cmd.Flags().StringVar(&target.table, "table", "equipment", "equipment table to seed")
	return cmd
}

func assessCmd() *cobra.Command {
	var o assessOptions

	cmd := &cobra.Command{
		Use:   "assess [dataset-file]",
		Short: "Score every record in a dataset and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.path = args[0]
			return runAssess(cmd.OutOrStdout(), o, time.Now())
		},
	}

	cmd.Flags().BoolVar(&o.json, "json", false, "print JSON instead of a table")
	cmd.Flags().IntVar(&o.top, "top", 0, "only print the N highest-priority records")
	cmd.Flags().StringVar(&o.forecast, "forecast", "", "short forecast text to score against, e.g. \"Thunderstorms\"")
	cmd.Flags().Float64Var(&o.temperature, "temperature", 70, "forecast temperature in °F, used with --forecast")
	return cmd
}

func costCmd() *cobra.Command {
	var (
		age       float64
		customers int
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Estimate preventative, repair and outage cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCost(cmd.OutOrStdout(), age, customers)
		},
	}

	cmd.Flags().Float64Var(&age, "age", 0, "equipment age in years")
	cmd.Flags().IntVar(&customers, "customers", 0, "customers served")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("customers")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export [dataset-file]",
		Short: "Assess a dataset and write a CSV, XLSX or PDF report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return runExport(cmd.OutOrStdout(), args[0], f, out, time.Now())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "report format: csv, xlsx or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: generated name in the working directory)")
	return cmd
}
