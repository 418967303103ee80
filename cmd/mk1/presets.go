package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ingyamilmolinar/mk1/internal/preset"
)

var presetsCmd = &cobra.Command{
	Use:     "presets",
	Aliases: []string{"preset"},
	Short:   "List, show, copy and delete presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every preset",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		builtin := map[string]bool{}
		for _, p := range preset.Builtins {
			builtin[p.Name] = true
		}
		for _, n := range names {
			if builtin[n] {
				fmt.Printf("%s (built-in)\n", n)
				continue
			}
			fmt.Println(n)
		}
		return nil
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a preset as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		p, err := store.Load(args[0])
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	},
}

var presetsCopyCmd = &cobra.Command{
	Use:   "copy SRC DST",
	Short: "Save a copy of a preset under a new name",
	Long:  "Save a copy of a preset under a new name. Copying a built-in is the way to start editing it.",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		p, err := store.Load(args[0])
		if err != nil {
			return err
		}
		p.Name = args[1]
		if err := store.Save(p); err != nil {
			return err
		}
		fmt.Printf("copied %s to %s in %s\n", args[0], args[1], store.Dir())
		return nil
	},
}

var presetsDeleteCmd = &cobra.Command{
	Use:     "delete NAME",
	Aliases: []string{"rm"},
	Short:   "Delete a saved preset",
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		return store.Delete(args[0])
	},
}

func init() {
	presetsCmd.AddCommand(presetsListCmd, presetsShowCmd, presetsCopyCmd, presetsDeleteCmd)
}
