package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/homesense/core/client"
	"github.com/relabs-tech/homesense/core/logger"
)

const defaultURL = "http://localhost:3000"

type options struct {
	url     string
	verbose bool
	// requestID is sent with every request of one invocation, so the backend logs
	// of a command can be found by it
	requestID string
}

func (o *options) client() client.Client {
	return client.NewWithURL(o.url).WithHeader(logger.RequestIDHeader, o.requestID)
}

// newRootCmd returns the root command with all subcommands
func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "homesensectl",
		Short: "Command line client of the homesense backend",
		Long: `homesensectl shows the dashboard of a homesense backend, administers its users,
sensors and measures, seeds it with sample data and exports its measures.

The backend is selected with --url or the environment variable HOMESENSE_URL.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logrus.WarnLevel
			if o.verbose {
				level = logrus.DebugLevel
			}
			logger.InitLogger(level)
			o.requestID = uuid.New().String()
			logger.Default().Debugln("request id", o.requestID)
		},
	}

	url := os.Getenv("HOMESENSE_URL")
	if url == "" {
		url = defaultURL
	}
	rootCmd.PersistentFlags().StringVar(&o.url, "url", url, "base URL of the homesense backend")
	rootCmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose (debug) logging")

	rootCmd.AddCommand(
		newDashboardCmd(o),
		newListCmd(o),
		newDeleteCmd(o),
		newSeedCmd(o),
		newExportCmd(o),
	)
	return rootCmd
}
