// Command ripple is the CLI over pkg/ripple: ripple demo, ripple add,
// ripple query, ripple watch, ripple serve. Adapted from the teacher's
// flat os.Args dispatch in cmd/trigo/main.go, enriched with
// github.com/spf13/cobra the way cayleygraph/cayley's own CLI is built.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
