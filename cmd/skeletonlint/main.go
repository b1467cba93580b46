// Command skeletonlint is the content build gate: it loads every exercise,
// analyzes the skeletons of those with assertions and exits non-zero if any
// skeleton leaks a working implementation.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "skeletonlint:", err)
		}
		os.Exit(1)
	}
}
