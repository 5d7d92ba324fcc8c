package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/makecv/makecv/internal/config"
)

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the makecv configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file to ~/.config/makecv/config.yml (or --config).
An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after applying the config file, environment and .env. API keys are masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GlobalConfigPath()
	}

	if err := config.WriteScaffold(path, config.Scaffold()); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			exitWithError(ExitConfigError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Wrote %s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "created", Path: path})
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig().Redacted()

	if !humanOutput {
		return outputJSON(cfg)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	outputHuman("%s", data)
	return nil
}
