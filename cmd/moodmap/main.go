// Command moodmap serves the mood journal page and manages its entries from
// the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/sakif/moodmap/internal/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "moodmap: %v\n", err)
		os.Exit(1)
	}
}
