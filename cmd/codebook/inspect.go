package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/codebook"
)

type inspectSummary struct {
	File     string   `json:"file"`
	Version  string   `json:"version"`
	Mappings int      `json:"mappings"`
	Rounds   int      `json:"rounds"`
	Channels int      `json:"channels"`
	Targets  []string `json:"targets"`
}

func inspectCmd(a *app) *cobra.Command {
	var rounds, channels int

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Summarize a codebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cb, err := codebook.ReadFile(args[0])
			if err != nil {
				return err
			}
			nRounds, nChannels, err := cb.Shape(rounds, channels)
			if err != nil {
				return err
			}

			summary := inspectSummary{
				File:     args[0],
				Version:  cb.Version,
				Mappings: len(cb.Mappings),
				Rounds:   nRounds,
				Channels: nChannels,
				Targets:  cb.Targets(),
			}

			w := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(w, summary)
			}

			fmt.Fprintf(w, "File:     %s\n", summary.File)
			fmt.Fprintf(w, "Version:  %s\n", summary.Version)
			fmt.Fprintf(w, "Mappings: %d\n", summary.Mappings)
			fmt.Fprintf(w, "Rounds:   %d\n", summary.Rounds)
			fmt.Fprintf(w, "Channels: %d\n", summary.Channels)
			fmt.Fprintf(w, "Targets:  %d\n", len(summary.Targets))
			if len(summary.Targets) > 0 {
				fmt.Fprintf(w, "  %s\n", strings.Join(summary.Targets, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 0, "Number of rounds (default: inferred from the codebook)")
	cmd.Flags().IntVar(&channels, "channels", 0, "Number of channels (default: inferred from the codebook)")

	return cmd
}
