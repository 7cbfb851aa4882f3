// Package cmd contains the command-line interface definitions and execution
// logic for portainerctl. The root command wires connection and logging
// configuration into the client, and the container subcommands expose the
// lifecycle operations of one Portainer-managed Docker endpoint.
package cmd

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/portainerctl/internal/flags"
	"github.com/nicholas-fedor/portainerctl/pkg/client"
	"github.com/nicholas-fedor/portainerctl/pkg/container"
)

// errNoHost indicates no Portainer server host was configured.
var errNoHost = errors.New("no portainer host configured (use --host or PORTAINER_HOST)")

// apiClient is the container operation client, initialized during preRun
// from command-line flags and PORTAINER_* environment variables.
var apiClient *container.Client

// collection provides entity-level access on top of apiClient.
var collection *container.Collection

// NewRootCommand builds the root command with its persistent flags and
// container subcommands attached.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "portainerctl",
		Short:             "Manage Docker containers through a Portainer endpoint",
		Long:              "portainerctl drives the Docker environment behind a Portainer server,\nauthenticating with a short-lived bearer token obtained from the configured credentials.",
		PersistentPreRunE: preRun,
		PersistentPostRun: postRun,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags.SetDefaults()
	flags.RegisterConnectionFlags(rootCmd)
	flags.RegisterSystemFlags(rootCmd)

	rootCmd.AddCommand(
		newPSCommand(),
		newInspectCommand(),
		newStartCommand(),
		newStopCommand(),
		newRestartCommand(),
		newKillCommand(),
		newPauseCommand(),
		newUnpauseCommand(),
		newStatsCommand(),
		newTopCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

// preRun configures logging and builds the shared client before any
// subcommand runs.
func preRun(cmd *cobra.Command, _ []string) error {
	rootFlags := cmd.Root().PersistentFlags()

	if err := flags.SetupLogging(rootFlags); err != nil {
		return err
	}

	opts, err := flags.ClientOptions(cmd.Root())
	if err != nil {
		return err
	}

	if opts.Host == "" {
		return errNoHost
	}

	logrus.WithFields(logrus.Fields{
		"host":     opts.Host,
		"port":     opts.Port,
		"endpoint": opts.EndpointID,
	}).Debug("Connecting to Portainer server")

	apiClient = container.NewClient(client.New(opts))
	collection = container.NewCollection(apiClient)

	return nil
}

// postRun releases the shared transport after the subcommand finishes.
func postRun(_ *cobra.Command, _ []string) {
	if apiClient != nil {
		apiClient.Close()
	}
}
