package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ingyamilmolinar/mk1/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Create the config file if needed and print its path",
	Example: "mk1 config\nmk1 config --config path/to/mk1.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := config.WriteDefault(configFile); err != nil {
			return err
		}
		fmt.Println(configFile)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after env and flags are applied",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
