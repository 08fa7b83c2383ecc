package main

import (
	"os"

	"github.com/dbtestharness/dbtestharness/cmd/dbtestharness/cmd"
	"github.com/dbtestharness/dbtestharness/internal/harness/harnesscontext"
)

func main() {
	harnesscontext.ConfigureLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
