package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flexnote/compute-broker/compute"
	"github.com/flexnote/compute-broker/internal/config"
	"github.com/flexnote/compute-broker/server"
	"github.com/flexnote/compute-broker/sessions"
)

var (
	flagHost string
	flagPort string
	flagMock bool
)

var rootCmd = &cobra.Command{
	Use:   "compute-broker",
	Short: "Broker GPU compute instances for notebook sessions",
	Long: `compute-broker maps notebook sessions onto GPU instances at the compute
provider. It lists GPU types, provisions instances, tracks session expiry
and releases instances when sessions are deleted.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(loadConfig(cmd))
	},
}

var gpuTypesCmd = &cobra.Command{
	Use:     "gpu-types",
	Aliases: []string{"gpus"},
	Short:   "Print the GPU catalog the API would serve",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig(cmd)
		svc := compute.NewService(sessions.NewInMemoryRepo(), newGateway(c))
		gpus := svc.AvailableGPUTypes(context.Background())

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-18s %-22s %-7s %-5s %-8s %s\n", "ID", "NAME", "MEMORY", "CC", "$/HOUR", "AVAILABLE")
		fmt.Fprintln(out, strings.Repeat("-", 72))
		for _, g := range gpus {
			fmt.Fprintf(out, "%-18s %-22s %-7s %-5s %-8.2f %t\n", g.ID, g.Name, g.Memory, g.ComputeCapability, g.PricePerHour, g.Available)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), server.Version)
	},
}

// loadConfig builds the config, letting explicitly set flags win over the
// environment, and configures logging from it.
func loadConfig(cmd *cobra.Command) config.Config {
	var opts []config.Option
	if cmd.Flags().Changed("host") {
		opts = append(opts, config.WithHost(flagHost))
	}
	if cmd.Flags().Changed("port") {
		opts = append(opts, config.WithPort(flagPort))
	}
	if cmd.Flags().Changed("mock") {
		opts = append(opts, config.WithMockMode(flagMock))
	}
	c := config.New(opts...)
	setupLogging(c.GetLogLevel(), c.GetEnv())
	return c
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "listen host (overrides API_HOST)")
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "listen port (overrides API_PORT)")
	rootCmd.PersistentFlags().BoolVar(&flagMock, "mock", true, "use the in-process compute provider (overrides MOCK_MODE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gpuTypesCmd)
	rootCmd.AddCommand(versionCmd)
}
