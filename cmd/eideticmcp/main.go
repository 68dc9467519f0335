// Package main provides the entry point for the eideticmcp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/eidetic-labs/eideticmcp/cmd/eideticmcp/cmd"
	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, errors.FormatForCLI(err))
		os.Exit(1)
	}
}
