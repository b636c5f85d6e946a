package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AnacletoLAB/graphfetch"
	"github.com/AnacletoLAB/graphfetch/internal/cache"
	"github.com/AnacletoLAB/graphfetch/internal/catalog"
	"github.com/AnacletoLAB/graphfetch/internal/ledger"
)

var infoVersion string

var infoCmd = &cobra.Command{
	Use:   "info <collection> <dataset>",
	Short: "Show catalog entry and cache status for a dataset",
	Args:  cobra.ExactArgs(2),
	Run:   runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&infoVersion, "version", "current", "Dataset version to inspect")
}

func runInfo(cmd *cobra.Command, args []string) {
	collection, dataset := args[0], args[1]

	spec, err := catalog.Builtin().Lookup(collection, dataset, infoVersion)
	if err != nil {
		exitError("%v", err)
	}

	store, err := cache.New(cacheDir())
	if err != nil {
		exitError("%v", err)
	}

	bold := color.New(color.Bold)
	bold.Printf("%s/%s@%s\n", spec.Collection, spec.Name, spec.Version)
	if spec.Description != "" {
		fmt.Printf("  %s\n", spec.Description)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	for _, f := range spec.Files {
		entry, err := store.Resolve(spec.Collection, spec.Name, spec.Version, f.Name, f.SHA256)
		if err != nil {
			exitError("inspect cache: %v", err)
		}
		fmt.Printf("  %s\n", f.Name)
		for _, url := range f.URLs {
			fmt.Printf("    url: %s\n", url)
		}
		switch {
		case !entry.Exists:
			fmt.Println("    cache: absent")
		case entry.Valid(f.SHA256):
			green.Printf("    cache: valid (%d bytes)\n", entry.Size)
		default:
			red.Println("    cache: INVALID (checksum mismatch)")
		}
	}

	led, err := ledger.Open(filepath.Join(store.Root(), graphfetch.LedgerFile))
	if err != nil {
		return // no history is fine
	}
	defer led.Close()

	records, err := led.Entries(context.Background(), spec.Collection, spec.Name)
	if err != nil || len(records) == 0 {
		return
	}
	fmt.Printf("  last retrieved: %s from %s\n",
		records[0].CreatedAt.Format("2006-01-02 15:04:05"), records[0].URL)
}
