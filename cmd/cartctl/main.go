// Command cartctl inspects and edits a single cart persisted in a local
// SQLite file, the same way the storefront keeps one cart per browser.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
