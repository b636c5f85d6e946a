package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnacletoLAB/graphfetch/internal/cache"
)

var (
	cleanVersion string
	cleanForce   bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <collection> [<dataset>]",
	Short: "Remove cached datasets",
	Long: `Remove cached files for a dataset, or a whole collection when no dataset
is given. The next fetch re-downloads from the configured locations.`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanVersion, "version", "", "Only remove this version")
	cleanCmd.Flags().BoolVarP(&cleanForce, "force", "f", false, "Do not ask for confirmation")
}

func runClean(cmd *cobra.Command, args []string) {
	collection := args[0]
	dataset := ""
	if len(args) == 2 {
		dataset = args[1]
	}

	target := collection
	if dataset != "" {
		target = collection + "/" + dataset
		if cleanVersion != "" {
			target += "@" + cleanVersion
		}
	}

	if !cleanForce {
		fmt.Printf("Remove cached files for %s? [y/N] ", target)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return
		}
	}

	store, err := cache.New(cacheDir())
	if err != nil {
		exitError("%v", err)
	}
	if err := store.Clean(collection, dataset, cleanVersion); err != nil {
		exitError("%v", err)
	}
	fmt.Printf("Removed %s\n", target)
}
