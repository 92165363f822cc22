package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/foundry/internal/client"
	"github.com/alfredjeanlab/foundry/internal/ui"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool

	foundryClient client.FoundryClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("FOUNDRY_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemote().URL; u != "" {
		return u
	}
	return "http://localhost:6500"
}

func defaultServer() string {
	if s := os.Getenv("FOUNDRY_SERVER"); s != "" {
		return s
	}
	if a := activeRemote().GRPCAddr; a != "" {
		return a
	}
	return "localhost:9090"
}

func defaultNATSURL() string {
	if s := os.Getenv("FOUNDRY_NATS_URL"); s != "" {
		return s
	}
	return activeRemote().NATSURL
}

// skipClient is installed as PersistentPreRunE on commands that never talk
// to the API (serve, export, remote, watch).
func skipClient(cmd *cobra.Command, args []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "foundry <command>",
	Short:         "CLI for the campaign reference service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch transport {
		case "http":
			foundryClient = client.NewHTTPClient(httpURL)
		case "grpc":
			c, err := client.NewGRPCClient(serverAddr)
			if err != nil {
				return fmt.Errorf("failed to connect to server: %w", err)
			}
			foundryClient = c
		default:
			return fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if foundryClient != nil {
			foundryClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "reference", Title: "Reference:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Records
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(addCmd)

	// Reference
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	ui.Init()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error: ")+err.Error())
		os.Exit(1)
	}
}
