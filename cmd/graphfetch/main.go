// Command graphfetch retrieves and caches published graph datasets.
package main

import (
	"os"

	"github.com/AnacletoLAB/graphfetch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
