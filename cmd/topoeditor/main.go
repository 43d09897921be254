// Command topoeditor serves the topology editor engine over HTTP and hosts
// standalone IO-Tool endpoints.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
