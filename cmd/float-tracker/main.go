// Package main is the entry point for float-tracker.
package main

import (
	"os"

	"github.com/donaldgifford/float-tracker/cmd/float-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
