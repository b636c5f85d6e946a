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

var verifyVersion string

var verifyCmd = &cobra.Command{
	Use:   "verify <collection> <dataset>",
	Short: "Re-verify cached files against published or recorded checksums",
	Long: `Recompute the digest of every cached file of a dataset and compare it
against the catalog checksum, falling back to the digest recorded in the
retrieval ledger at download time. Detects on-disk corruption without any
network I/O.`,
	Args: cobra.ExactArgs(2),
	Run:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyVersion, "version", "current", "Dataset version to verify")
}

func runVerify(cmd *cobra.Command, args []string) {
	collection, dataset := args[0], args[1]

	spec, err := catalog.Builtin().Lookup(collection, dataset, verifyVersion)
	if err != nil {
		exitError("%v", err)
	}

	store, err := cache.New(cacheDir())
	if err != nil {
		exitError("%v", err)
	}

	var led *ledger.Ledger
	if l, err := ledger.Open(filepath.Join(store.Root(), graphfetch.LedgerFile)); err == nil {
		led = l
		defer led.Close()
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	failures := 0
	for _, f := range spec.Files {
		want := f.SHA256
		source := "catalog"
		if want == "" && led != nil {
			if recorded, err := led.LatestChecksum(context.Background(),
				spec.Collection, spec.Name, spec.Version, f.Name); err == nil && recorded != "" {
				want, source = recorded, "ledger"
			}
		}

		entry, err := store.Resolve(spec.Collection, spec.Name, spec.Version, f.Name, want)
		if err != nil {
			exitError("inspect cache: %v", err)
		}

		switch {
		case !entry.Exists:
			yellow.Printf("  %s: not cached\n", f.Name)
		case want == "":
			yellow.Printf("  %s: no checksum to verify against\n", f.Name)
		case entry.Verified:
			green.Printf("  %s: ok (%s checksum %s)\n", f.Name, source, shortSum(want))
		default:
			red.Printf("  %s: MISMATCH (expected %s, got %s)\n", f.Name, shortSum(want), shortSum(entry.SHA256))
			failures++
		}
	}

	if failures > 0 {
		exitError("%d file(s) failed verification; run fetch to repair", failures)
	}
	fmt.Println("Verification complete.")
}
