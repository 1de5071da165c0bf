package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "easel",
	Short: "Easel: a breakpoint-aware page canvas",
	Long: `Easel edits a tree of catalog components, resolves per-breakpoint property
overrides and {{source.path}} data bindings, and renders the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .easel.yaml)")
	pf.StringP("document", "d", "", "canvas document (JSON file, or document name with --db)")
	pf.String("db", "", "SQLite database to store documents in")
	pf.String("datasources", "", "HCL file declaring data sources")
	pf.String("catalog", "", "JSON file with extra component metadata")
	pf.StringP("breakpoint", "b", "", "breakpoint to edit and render")
	pf.String("id-generator", "composite", "component ID strategy: composite or uuid7")
	pf.BoolP("verbose", "v", false, "log diagnostics to stderr")

	for _, key := range []string{"document", "db", "datasources", "catalog", "breakpoint", "verbose"} {
		_ = viper.BindPFlag(key, pf.Lookup(key))
	}
	_ = viper.BindPFlag("id_generator", pf.Lookup("id-generator"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".easel")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("EASEL")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()

	if !viper.GetBool("verbose") {
		log.SetOutput(io.Discard)
	}
}
