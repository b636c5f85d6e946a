package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AnacletoLAB/graphfetch/internal/cache"
	"github.com/AnacletoLAB/graphfetch/internal/catalog"
)

var listCached bool

var listCmd = &cobra.Command{
	Use:   "list [<collection>]",
	Short: "List available or cached datasets",
	Long: `List the datasets of the built-in catalog, or with --cached the files
currently materialized under the cache root.

Examples:
  graphfetch list
  graphfetch list string
  graphfetch list --cached`,
	Args: cobra.MaximumNArgs(1),
	Run:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listCached, "cached", false, "List cached files instead of the catalog")
}

func runList(cmd *cobra.Command, args []string) {
	if listCached {
		runListCached()
		return
	}

	cat := catalog.Builtin()
	collections := cat.Collections()
	if len(args) == 1 {
		collections = []string{args[0]}
	}

	bold := color.New(color.Bold)
	for _, col := range collections {
		datasets := cat.Datasets(col)
		if len(datasets) == 0 {
			continue
		}
		bold.Printf("%s\n", col)
		for _, name := range datasets {
			versions := cat.Versions(col, name)
			fmt.Printf("  %-28s %v\n", name, versions)
		}
	}
}

func runListCached() {
	store, err := cache.New(cacheDir())
	if err != nil {
		exitError("%v", err)
	}

	files, err := store.Walk()
	if err != nil {
		exitError("scan cache: %v", err)
	}
	if len(files) == 0 {
		fmt.Println("Cache is empty.")
		return
	}

	for _, f := range files {
		fmt.Printf("%s/%s@%s  %s  (%d bytes)\n", f.Collection, f.Dataset, f.Version, f.Name, f.Size)
	}
}
