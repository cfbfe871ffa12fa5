package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lpchscp/rhadron/internal/generator"
	"github.com/lpchscp/rhadron/internal/hits"
)

func newSynthCmd() *cobra.Command {
	var (
		events       int
		hitsPerEvent int
		mass         float64
		seed         int64
		outPath      string
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic hit table",
		Long:  "Writes a randomized hit table with the analyzer's columns, for trying the analysis\ncommands without simulation output.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if events <= 0 || hitsPerEvent <= 0 {
				return fmt.Errorf("--events and --hits-per-event must be > 0")
			}
			gen := generator.New()
			if cmd.Flags().Changed("seed") {
				gen = generator.NewSeeded(seed)
			}
			t := hits.NewTable(gen.Generate(events, hitsPerEvent, mass))
			return writeTable(cmd.OutOrStdout(), outPath, t)
		},
	}
	cmd.Flags().IntVar(&events, "events", 100, "number of events")
	cmd.Flags().IntVar(&hitsPerEvent, "hits-per-event", 20, "hits written per event")
	cmd.Flags().Float64Var(&mass, "mass", defaultGluinoMass, "gluino mass in GeV")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV (default stdout)")
	return cmd
}
