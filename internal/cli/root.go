// Package cli implements the graphfetch command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AnacletoLAB/graphfetch"
)

var rootCmd = &cobra.Command{
	Use:   "graphfetch",
	Short: "Retrieve and cache published graph datasets",
	Long: `graphfetch downloads named graph datasets (for example STRING organism
networks) over HTTP, verifies them against published checksums when available,
and caches them on disk so repeated retrievals perform no network I/O.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory (default: $GRAPH_CACHE_DIR or ./graphs)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().Bool("progress", false, "show per-file progress bars")

	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(cleanCmd)
}

func initConfig() {
	viper.SetEnvPrefix("GRAPHFETCH")
	viper.AutomaticEnv()
	if env := os.Getenv(graphfetch.CacheDirEnv); env != "" {
		viper.SetDefault("cache_dir", env)
	} else {
		viper.SetDefault("cache_dir", graphfetch.DefaultCacheDir)
	}
}

// cacheDir returns the resolved cache root for this invocation.
func cacheDir() string {
	return viper.GetString("cache_dir")
}

// verbosityFromFlags maps the quiet/progress flags to a Verbosity.
func verbosityFromFlags(cmd *cobra.Command) graphfetch.Verbosity {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return graphfetch.Silent
	}
	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		return graphfetch.Progress
	}
	return graphfetch.Summary
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortSum returns the first 12 characters of a digest
func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
