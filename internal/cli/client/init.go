package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd creates the init command.
func InitCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the frontline CLI",
		Long:  "Verifies the API is reachable and saves its URL to the global config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(apiURL)
		},
	}

	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "Base URL of the frontline API")

	return cmd
}

func runInit(apiURL string) error {
	api, err := NewAPIClientWithConfig(apiURL)
	if err != nil {
		return err
	}

	if _, err := api.Get("/health"); err != nil {
		return fmt.Errorf("API at %s is not reachable: %w", apiURL, err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIURL: apiURL}); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	fmt.Printf("Connected to %s\n", apiURL)
	fmt.Printf("Configuration saved to %s\n", configPath)
	return nil
}
