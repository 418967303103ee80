package main

import (
	"fmt"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/ingyamilmolinar/mk1/internal/service"
)

var midiCmd = &cobra.Command{
	Use:   "midi",
	Short: "Inspect MIDI inputs",
}

var midiPortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI input ports usable with serve --midi",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		ports := service.Ports()
		if len(ports) == 0 {
			fmt.Println("no MIDI inputs found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	midiCmd.AddCommand(midiPortsCmd)
}
