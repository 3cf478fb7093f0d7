// Command rulectl validates and evaluates scheduling rules without a server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rulectl:", err)
		os.Exit(exitCode(err))
	}
}
