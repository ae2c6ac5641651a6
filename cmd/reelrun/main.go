// Command reelrun is the thin CLI entrypoint: it wires internal/cli's
// take/record/vrecord subcommands and reports nonzero exit codes on any
// failure (form mismatch, value mismatch, parse error, transport error),
// the way the teacher's main() logs a fatal condition and exits nonzero.
package main

import (
	"fmt"
	"os"

	"reelrun/internal/cli"
)

func main() {
	if err := cli.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
