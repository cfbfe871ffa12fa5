package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lpchscp/rhadron/internal/cmssw"
	"github.com/lpchscp/rhadron/internal/stats"
)

func newCollectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "Print the CMSSW collections read by the hit analyzer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Global tag: %s\n", cmssw.GlobalTag)
			fmt.Fprintf(out, "Detector labels: %s\n\n", strings.Join(cmssw.Detectors(), ", "))
			all := cmssw.Collections()
			rows := make([][]string, 0, len(all))
			for _, c := range all {
				detector := c.Detector
				if detector == "" {
					detector = "-"
				}
				rows = append(rows, []string{c.Param, c.Tag.String(), string(c.Group), detector})
			}
			return stats.RenderTable(out, []string{"Parameter", "Input tag", "Group", "Detector"}, rows, nil)
		},
	}
}
