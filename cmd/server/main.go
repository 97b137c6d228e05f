package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/config"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/server"
)

var version = "dev"

var (
	flagPort      string
	flagHost      string
	flagWorkspace string
	flagDev       bool
)

var rootCmd = &cobra.Command{
	Use:           "codepilot-server",
	Short:         "Backend for the CodePilot browser coding sandbox",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("codepilot-server %s\n", version)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagPort, "port", "", "override PORT")
	rootCmd.Flags().StringVar(&flagHost, "host", "", "override HOST")
	rootCmd.Flags().StringVar(&flagWorkspace, "workspace", "", "override WORKSPACE_ROOT")
	rootCmd.Flags().BoolVar(&flagDev, "dev", false, "development logging (console encoder, debug level)")
	rootCmd.AddCommand(versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	srv, err := server.NewServer(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flagPort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flagHost
	}
	if cmd.Flags().Changed("workspace") {
		cfg.Workspace.Root = flagWorkspace
	}
	if flagDev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
}
