package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lpchscp/rhadron/internal/browse"
	"github.com/lpchscp/rhadron/internal/model"
)

var (
	browseCfg   model.AnalysisConfig
	browseEvent int
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a hit table interactively",
		Args:  cobra.NoArgs,
		RunE:  runBrowse,
	}

	cmd.Flags().StringVar(&browseCfg.HitsPath, "hits", "", "hit table CSV written by the hit analyzer")
	cmd.Flags().Float64Var(&browseCfg.EnergyCut, "energy-cut", 0, "initial energy cut (GeV)")
	cmd.Flags().BoolVar(&browseCfg.NoMuon, "no-muon", false, "start with muon chamber hits removed")
	cmd.Flags().BoolVar(&browseCfg.NoECAL, "no-ecal", false, "start with ECAL hits removed")
	cmd.Flags().IntVar(&browseEvent, "event", 1, "initial event on the Events tab")

	return cmd
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	fileCfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	cfg := browseCfg
	applyStringConfig(cmd, "hits", &cfg.HitsPath, fileCfg.Analysis.Hits)
	applyFloatConfig(cmd, "energy-cut", &cfg.EnergyCut, fileCfg.Analysis.EnergyCut)

	// Detector removal is a browser toggle, so the table is loaded whole.
	t, err := loadHits(cfg.HitsPath, false, false)
	if err != nil {
		return err
	}

	m := browse.NewModel(t, cfg.HitsPath, browse.Settings{
		EnergyCut: cfg.EnergyCut,
		Event:     browseEvent,
		NoMuon:    cfg.NoMuon,
		NoECAL:    cfg.NoECAL,
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}
