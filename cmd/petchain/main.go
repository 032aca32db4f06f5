package main

import (
	"errors"
	"fmt"
	"os"
)

// main runs the offline verifier. Exit status 2 means at least one
// transaction was rejected, 1 means the input could not be verified.
func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		if errors.Is(err, errRejected) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "petchain:", err)
		os.Exit(1)
	}
}
