// Package cmd is a thin adapter surface over the extraction core: argument
// parsing, output rendering, and progress reporting are external
// collaborators (spec.md §1 Non-goals), so this command only binds
// configuration via viper the way the teacher's cmd/root.go does, builds an
// Orchestrator, and prints the result as indented JSON -- just enough to
// drive the library from a terminal, not a full CLI surface.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/btraven00/geoextent-core/internal/config"
	"github.com/btraven00/geoextent-core/internal/logging"
	"github.com/btraven00/geoextent-core/internal/orchestrator"
	"github.com/btraven00/geoextent-core/internal/probe"
	"github.com/btraven00/geoextent-core/internal/provider/builtin"
	"github.com/btraven00/geoextent-core/internal/registry"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "geoextent-core [identifier ...]",
	Short: "Extract geospatial and temporal extent from research-repository datasets",
	Long: `geoextent-core resolves a DOI, handle, or provider URL to its
registered repository, fetches just enough of the dataset to determine its
geographic bounding extent and temporal range, and reports the merged
result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.geoextent-core.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".geoextent-core")
	}

	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // absence of a config file is not an error
}

func runExtract(cmd *cobra.Command, args []string) error {
	logging.Configure(os.Stderr, verbose)

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := registry.New(builtin.Adapters())
	probes := probe.NewRegistry() // per spec.md §1 Non-goals, no decoders ship in this core
	orch := orchestrator.New(reg, probes, cfg)

	batch := orch.RunBatch(context.Background(), args)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}
