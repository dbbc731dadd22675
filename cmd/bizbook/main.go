// Package main is the entry point for the bizbook CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/bizbook/cmd/bizbook/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
