package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/berfenger/kwb2mqtt/internal/adapter/source"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/spf13/cobra"
)

var scrapeJSON bool

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a single scrape cycle and print the snapshot",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "print the snapshot as json")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	appliance, err := source.NewAppliance(cfg.Heater, logger)
	if err != nil {
		return err
	}
	if !appliance.Scrape() {
		return fmt.Errorf("scrape failed (%s): %w", appliance.State(), appliance.LastError())
	}
	snapshot := appliance.Snapshot()

	if scrapeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	units := map[string]string{}
	for _, group := range appliance.SignalGroups() {
		for _, def := range group.Signals {
			units[def.Key] = def.Unit
		}
	}
	printSnapshot(snapshot, units)
	return nil
}

func printSnapshot(snapshot kwb.Snapshot, units map[string]string) {
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%-32s %s %s\n", key, snapshot[key], units[key])
	}
}
