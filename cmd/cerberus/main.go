// Command cerberus is a thin CLI wrapper over the pkg/cerberus library:
// build/update an index, search it, and inspect or mutate symbols.
package main

import (
	"os"

	"github.com/cerberus-code/cerberus/cmd/cerberus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
