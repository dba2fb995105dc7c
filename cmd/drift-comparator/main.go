package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oxygene76/drift-comparator/internal/monitoring"
	"github.com/oxygene76/drift-comparator/pkg/drift"
	"github.com/oxygene76/drift-comparator/pkg/utils"
)

var (
	cfgFile string
	verbose bool

	v      *viper.Viper
	config *utils.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	v = viper.New()
	config = nil
	cfgFile, verbose = "", false

	rootCmd := &cobra.Command{
		Use:   "drift-comparator",
		Short: "Compare baseline and corrected orbital drift for position time series",
		Long: `Reads a CSV of heliocentric position samples, computes the GR baseline drift
and the MQUDE corrected drift, fits a linear trend to their residual and
projects it to a future date. Results are exported as CSV, JSON and figures.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.drift-comparator/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.Float64("alpha", drift.DefaultAlpha, "coupling strength α (>= 0)")
	flags.Float64("lambda", drift.DefaultLambdaKm, "coherence length λ in km (> 0)")
	flags.String("profile", string(drift.ProfileStrict), "input schema profile (minimal|strict)")
	flags.String("project-to", utils.DefaultProjectionDate, "projection date for the residual trend")
	flags.StringP("out", "o", "output", "output directory")

	for key, flag := range map[string]string{
		"model.alpha":     "alpha",
		"model.lambda_km": "lambda",
		"schema.profile":  "profile",
		"projection.date": "project-to",
		"output.dir":      "out",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.Fatal(err)
		}
	}

	// Add commands
	rootCmd.AddCommand(
		initCmd(),
		templateCmd(),
		computeCmd(),
		plotCmd(),
		trendCmd(),
		inspectCmd(),
	)

	return rootCmd
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := utils.LoadConfig(v, cfgFile)
	if err != nil {
		return err
	}
	config = cfg

	switch {
	case verbose || cfg.IsDebug():
		monitoring.SetLevel(monitoring.LevelDebug)
	case cfg.IsQuiet():
		monitoring.SetLevel(monitoring.LevelWarn)
	default:
		monitoring.SetLevel(monitoring.LevelInfo)
	}

	if verbose && v.ConfigFileUsed() != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	}
	return nil
}

// bindFlag ties a command-local flag to a config key.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		log.Fatal(err)
	}
}
