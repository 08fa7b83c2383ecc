package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dbtestharness/dbtestharness/internal/harness/controller"
	"github.com/dbtestharness/dbtestharness/internal/harness/harnesscontext"
	"github.com/dbtestharness/dbtestharness/internal/harness/harnessrpc"
	"github.com/dbtestharness/dbtestharness/internal/harness/hconfig"
	"github.com/dbtestharness/dbtestharness/internal/harness/memdb"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
)

// RootCmd is the root Cobra command for the controller binary. All other
// sub-commands are registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbtestharness",
		Short: "dbtestharness drives a fleet of tester processes through declarative test specs.",
	}

	cmd.PersistentFlags().String("config", "./config/dbtestharness.yaml", "Path to the harness config file.")
	cmd.AddCommand(runCmd())
	return cmd
}

// runCmd recruits the configured fleet and runs every test spec matched by
// --tests in order, printing a summary on exit, mirroring cmd/testsuite's
// testCmd.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one or more test specs against the configured tester fleet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			testFilesPattern, err := cmd.Flags().GetString("tests")
			if err != nil {
				return err
			}

			var cfg hconfig.HarnessConfig
			if err := hconfig.Load(configPath, &cfg); err != nil {
				return errors.Wrap(err, "loading harness config")
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid harness config")
			}

			testFiles, err := filepath.Glob(testFilesPattern)
			if err != nil {
				return err
			}
			if len(testFiles) == 0 {
				return errors.New("no test spec files matched " + testFilesPattern)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			stopSignal := make(chan os.Signal, 1)
			signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				select {
				case <-ctx.Done():
				case <-stopSignal:
					cancel()
				}
			}()
			hctx := harnesscontext.New(ctx, logrus.NewEntry(logrus.StandardLogger()))

			c := &controller.Controller{
				Locator:            memdb.StaticLocator(cfg.TesterEndpoints),
				Dialer:             harnessrpc.Dialer{},
				MinTestersExpected: cfg.MinTestersExpected,
				ReplyWindow:        cfg.ReplyWindow,
			}

			testers, err := c.Recruit(hctx)
			if err != nil {
				return errors.Wrap(err, "recruiting testers")
			}

			opts := controller.RunOptions{
				StartingConfiguration: cfg.StartingConfiguration,
				EnableDD:              cfg.EnableDD,
			}

			numSuccesses := 0
			numFailures := 0
			start := time.Now()
			isFirstTest := true

			for _, testFile := range testFiles {
				f, err := os.Open(testFile)
				if err != nil {
					return errors.Wrapf(err, "opening %s", testFile)
				}
				specs, err := spec.ParseFile(f)
				_ = f.Close()
				if err != nil {
					return errors.Wrapf(err, "parsing %s", testFile)
				}

				for _, s := range specs {
					if err := s.Validate(); err != nil {
						return errors.Wrapf(err, "test spec in %s", testFile)
					}

					testStart := time.Now()
					result, err := c.RunTest(hctx, s, testers, isFirstTest, opts)
					isFirstTest = false
					fmt.Printf("\n%s runtime: %s\n", s.Title, time.Since(testStart))
					if err != nil {
						numFailures++
						fmt.Printf("TEST %s FAILED: %s\n", s.Title, err)
						continue
					}
					if result.Passed {
						numSuccesses++
						fmt.Printf("TEST %s SUCCEEDED (%d/%d testers passed)\n", s.Title, result.Successes, result.Successes+result.Failures)
					} else {
						numFailures++
						fmt.Printf("TEST %s FAILED (%d/%d testers passed)\n", s.Title, result.Successes, result.Successes+result.Failures)
					}
					for _, m := range result.Metrics {
						formatCode := m.FormatCode
						if formatCode == "" {
							formatCode = "%v"
						}
						fmt.Printf("  %s: "+formatCode+"\n", m.Name, m.Value)
					}
				}
			}

			fmt.Printf("\n======= SUMMARY =======\n")
			fmt.Printf("Ran %d test(s) in %s\n", numSuccesses+numFailures, time.Since(start))
			fmt.Printf("Successes: %d\n", numSuccesses)
			fmt.Printf("Failures: %d\n", numFailures)
			if numFailures > 0 {
				return errors.New("one or more tests failed")
			}
			return nil
		},
	}

	cmd.Flags().String("tests", "", "Test spec file pattern, e.g. './testcases/*.txt'.")
	return cmd
}
