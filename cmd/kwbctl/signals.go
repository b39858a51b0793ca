package main

import (
	"fmt"
	"os"

	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var signalsYAML bool

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the signal map of the configured source",
	RunE:  runSignals,
}

func init() {
	signalsCmd.Flags().BoolVar(&signalsYAML, "yaml", false, "print the raw yaml groups")
	rootCmd.AddCommand(signalsCmd)
}

func runSignals(cmd *cobra.Command, args []string) error {
	v, err := loadViper(cmd)
	if err != nil {
		return err
	}
	groups, err := kwb.LoadSignalMaps(v.GetInt("heater.signal_source"))
	if err != nil {
		return err
	}

	if signalsYAML {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(groups)
	}

	for _, group := range groups {
		fmt.Printf("message 0x%02X (register %d, %d bytes)\n", group.MessageID, group.Register, group.Length)
		for _, def := range group.Signals {
			bit := ""
			if def.IsBool() {
				bit = fmt.Sprintf(".%d", def.Bit)
			}
			fmt.Printf("  %-32s %-4s @%d%-3s %-6s %s\n", def.Key, def.Type, def.Position, bit, def.Unit, def.Name)
		}
	}
	return nil
}
