package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/codebook"
)

func generateCmd(a *app) *cobra.Command {
	var (
		rounds   int
		channels int
		codes    int
		targets  string
		seed     uint64
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "generate --rounds N --channels N --codes N",
		Short: "Generate a random one-hot codebook",
		Long: `Generate a codebook of distinct codewords with exactly one channel on in
every round. Targets default to random UUIDs. The codebook is written to
--out when given, otherwise to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			if targets != "" {
				names = strings.Split(targets, ",")
			}

			var rng *rand.Rand
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(seed, seed))
			}

			cb, err := codebook.SyntheticOneHot(rounds, channels, codes, names, rng)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := cb.WriteFile(outPath); err != nil {
					return err
				}
				a.logger.Info("Generated codebook", "path", outPath, "codes", codes,
					"rounds", rounds, "channels", channels)
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d codes to %s\n", codes, outPath)
				return nil
			}

			data, err := cb.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 0, "Number of rounds")
	cmd.Flags().IntVar(&channels, "channels", 0, "Number of channels")
	cmd.Flags().IntVar(&codes, "codes", 0, "Number of codewords")
	cmd.Flags().StringVar(&targets, "targets", "", "Comma separated target names, one per code")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible output")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the codebook as JSON to this file")
	_ = cmd.MarkFlagRequired("rounds")
	_ = cmd.MarkFlagRequired("channels")
	_ = cmd.MarkFlagRequired("codes")

	return cmd
}
