package cmd

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/dbtestharness/dbtestharness/internal/harness/harnessrpc"
	"github.com/dbtestharness/dbtestharness/internal/harness/hconfig"
	"github.com/dbtestharness/dbtestharness/internal/harness/memdb"
)

// RootCmd is the root Cobra command for the tester binary.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbtester",
		Short: "dbtester serves one harnessrpc.Server, awaiting Assign from a controller.",
	}

	cmd.PersistentFlags().String("config", "./config/dbtester.yaml", "Path to the tester config file.")
	cmd.AddCommand(serveCmd())
	return cmd
}

// serveCmd starts the gRPC listener and blocks until SIGINT/SIGTERM, then
// drains in-flight calls before exiting.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen for controller Assign/Setup/Start/Check/Metrics/Stop calls.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			var cfg hconfig.TesterConfig
			if err := hconfig.Load(configPath, &cfg); err != nil {
				return errors.Wrap(err, "loading tester config")
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid tester config")
			}

			lis, err := net.Listen("tcp", cfg.ListenAddress)
			if err != nil {
				return errors.Wrapf(err, "listening on %s", cfg.ListenAddress)
			}

			db := memdb.New()
			defer func() { _ = db.Close() }()

			grpcServer := grpc.NewServer()
			harnessrpc.RegisterServer(grpcServer, harnessrpc.NewTesterServer(db))

			stopSignal := make(chan os.Signal, 1)
			signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-stopSignal
				logrus.Info("shutting down")
				grpcServer.GracefulStop()
			}()

			logrus.Infof("listening on %s", cfg.ListenAddress)
			return grpcServer.Serve(lis)
		},
	}
	return cmd
}
