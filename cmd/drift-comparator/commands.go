package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oxygene76/drift-comparator/internal/monitoring"
	"github.com/oxygene76/drift-comparator/internal/types"
	"github.com/oxygene76/drift-comparator/pkg/analysis"
	"github.com/oxygene76/drift-comparator/pkg/drift"
	"github.com/oxygene76/drift-comparator/pkg/utils"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			force, _ := cmd.Flags().GetBool("force")

			if path == "" {
				p, err := utils.GetConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			if err := utils.SaveConfig(config, path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote config file:", path)
			return nil
		},
	}

	cmd.Flags().String("path", "", "where to write the config (default is $HOME/.drift-comparator/config.yaml)")
	cmd.Flags().Bool("force", false, "overwrite an existing file")

	return cmd
}

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template [file]",
		Short: "Write an input CSV template for the selected schema profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			example, _ := cmd.Flags().GetBool("example")

			if len(args) == 0 {
				return drift.WriteTemplate(cmd.OutOrStdout(), config.Profile(), example)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create template: %w", err)
			}
			if err := drift.WriteTemplate(f, config.Profile(), example); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote template:", args[0])
			return nil
		},
	}

	cmd.Flags().Bool("example", false, "include two example rows")

	return cmd
}

func computeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute <input.csv>",
		Short: "Validate and compute the drift series, then export CSV and a JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			m := analysis.NewManager(config)
			a, err := m.Analyze(args[0])
			if err != nil {
				return err
			}
			path, err := m.Export(a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := a.Report.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if err := analysis.WriteSummary(out, a); err != nil {
				return err
			}
			fmt.Fprintln(out, "Exported:", path)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the run report as JSON")

	return cmd
}

func plotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot <input.csv>",
		Short: "Compute and write the drift, radial and residual figures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromExport, _ := cmd.Flags().GetBool("from-export")

			m := analysis.NewManager(config)
			var (
				a   *analysis.Analysis
				err error
			)
			if fromExport {
				a, err = m.TrendFromExport(args[0])
			} else {
				a, err = m.Analyze(args[0])
			}
			if err != nil {
				return err
			}

			written, err := m.Render(a)
			if err != nil {
				// Leave the failed run report behind when the directory allows it.
				if _, rerr := m.WriteReport(a); rerr != nil {
					monitoring.Warnf("failed to write run report: %v", rerr)
				}
				return err
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), "Wrote:", p)
			}
			return nil
		},
	}

	cmd.Flags().Bool("from-export", false, "input is a previous export; plot its residual only")
	cmd.Flags().Bool("show-trend", true, "draw the residual trend line and projection")
	cmd.Flags().Bool("png", true, "write PNG figures")
	cmd.Flags().Bool("html", true, "write the interactive HTML page")
	bindFlag(cmd, "output.show_trend", "show-trend")
	bindFlag(cmd, "output.png", "png")
	bindFlag(cmd, "output.html", "html")

	return cmd
}

func trendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trend <input.csv>",
		Short: "Fit the residual trend and project it to the configured date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromExport, _ := cmd.Flags().GetBool("from-export")
			asJSON, _ := cmd.Flags().GetBool("json")

			m := analysis.NewManager(config)
			var (
				a   *analysis.Analysis
				err error
			)
			if fromExport {
				a, err = m.TrendFromExport(args[0])
			} else {
				a, err = m.Analyze(args[0])
			}
			if err != nil {
				return err
			}

			a.Report.Type = types.RunTrend

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := a.Report.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			t, p := a.Figures.Trend, a.Figures.Projection
			fmt.Fprintf(out, "slope:      %.6f m/day\n", t.Slope)
			fmt.Fprintf(out, "intercept:  %.6f m\n", t.Intercept)
			fmt.Fprintf(out, "samples:    %d\n", t.Samples)
			if t.Degenerate {
				fmt.Fprintln(out, "degenerate: true")
			}
			fmt.Fprintf(out, "projection: %.3f m (%.6f km) at %s\n", p.ResidualM, p.ResidualKm, p.Target.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().Bool("from-export", false, "input is a previous export; do not recompute the model")
	cmd.Flags().Bool("json", false, "print the run report as JSON")

	return cmd
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <input.csv>",
		Short: "Print a summary and the first enriched rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := analysis.NewManager(config)
			a, err := m.Analyze(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := analysis.WriteSummary(out, a); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return analysis.WritePreview(out, a, config.Output.PreviewRows)
		},
	}

	cmd.Flags().IntP("rows", "n", 5, "number of rows to preview")
	bindFlag(cmd, "output.preview_rows", "rows")

	return cmd
}
