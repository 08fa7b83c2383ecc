package main

import (
	"os"

	"github.com/dbtestharness/dbtestharness/cmd/dbtester/cmd"
	"github.com/dbtestharness/dbtestharness/internal/harness/harnesscontext"

	_ "github.com/dbtestharness/dbtestharness/pkg/harness/workload/noop"
	_ "github.com/dbtestharness/dbtestharness/pkg/harness/workload/tpcc"
)

func main() {
	harnesscontext.ConfigureLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
