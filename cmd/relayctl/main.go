package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"uk.co.dudmesh.viberrelay/internal/boot"
)

var rootCmd = &cobra.Command{
	Use:           "relayctl",
	Short:         "Manage bots and API tokens for the Viber relay",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(botsCmd())
	rootCmd.AddCommand(tokenCmd())
}

func loadConfig() (*boot.Config, error) {
	config, err := boot.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return config, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}
