package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/decode"
	"github.com/c360studio/codebook/storage"
	"github.com/c360studio/codebook/trace"
)

type decodeOutput struct {
	Strategy string          `json:"strategy"`
	Method   string          `json:"method"`
	Results  []decode.Result `json:"results"`
	Summary  decode.Summary  `json:"summary"`
}

func decodeCmd(a *app) *cobra.Command {
	var (
		codebookPath string
		storedName   string
		spotsPath    string
		strategy     string
		method       string
		anchorRound  int
		searchRadius float64
		maxDistance  float64
		minIntensity float64
		rounds       int
		channels     int
	)

	cmd := &cobra.Command{
		Use:   "decode --spots FILE (--codebook FILE | --stored NAME)",
		Short: "Build traces from spot results and decode them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (codebookPath == "") == (storedName == "") {
				return fmt.Errorf("exactly one of --codebook or --stored is required")
			}

			dc := a.cfg.Decode
			flags := cmd.Flags()
			if flags.Changed("strategy") {
				dc.Strategy = strategy
			}
			if flags.Changed("method") {
				dc.Method = method
			}
			if flags.Changed("anchor-round") {
				dc.AnchorRound = &anchorRound
			}
			if flags.Changed("search-radius") {
				dc.SearchRadius = &searchRadius
			}
			if flags.Changed("max-distance") {
				dc.MaxDistance = &maxDistance
			}
			if flags.Changed("min-intensity") {
				dc.MinIntensity = &minIntensity
			}

			cb, err := a.loadCodebook(cmd.Context(), codebookPath, storedName)
			if err != nil {
				return err
			}
			if _, _, err := cb.Shape(rounds, channels); err != nil {
				return err
			}

			spots, err := trace.ReadSpotResults(spotsPath)
			if err != nil {
				return err
			}

			table, err := trace.Build(trace.Strategy(dc.Strategy), spots, dc.TraceOptions())
			if err != nil {
				return fmt.Errorf("build traces: %w", err)
			}
			a.logger.Debug("Built intensity table",
				"strategy", dc.Strategy,
				"features", len(table.Features),
				"rounds", len(table.Rounds),
				"channels", len(table.Channels))

			decoder, err := decode.New(decode.Method(dc.Method), cb, dc.DecodeOptions())
			if err != nil {
				return err
			}
			results, err := decoder.Decode(table)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}

			out := decodeOutput{
				Strategy: dc.Strategy,
				Method:   dc.Method,
				Results:  results,
				Summary:  decode.Summarize(results),
			}

			w := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(w, out)
			}
			return printDecode(w, out)
		},
	}

	cmd.Flags().StringVar(&codebookPath, "codebook", "", "Codebook file (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&storedName, "stored", "", "Name of a codebook in the registry")
	cmd.Flags().StringVar(&spotsPath, "spots", "", "Spot results file (JSON)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Trace building strategy (exact_match, nearest_neighbor)")
	cmd.Flags().StringVar(&method, "method", "", "Decoding method (per_round_max, metric)")
	cmd.Flags().IntVar(&anchorRound, "anchor-round", trace.DefaultAnchorRound, "Anchor round for nearest_neighbor")
	cmd.Flags().Float64Var(&searchRadius, "search-radius", trace.DefaultSearchRadius, "Search radius for nearest_neighbor")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", 0, "Distance threshold for the metric decoder")
	cmd.Flags().Float64Var(&minIntensity, "min-intensity", 0, "Intensity threshold for the metric decoder")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "Number of rounds the codebook must fit (default: inferred)")
	cmd.Flags().IntVar(&channels, "channels", 0, "Number of channels the codebook must fit (default: inferred)")
	_ = cmd.MarkFlagRequired("spots")

	return cmd
}

func (a *app) loadCodebook(ctx context.Context, path, name string) (*codebook.Codebook, error) {
	if path != "" {
		return codebook.ReadFile(path)
	}

	store, err := storage.Open(ctx, a.cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rec, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return rec.Codebook, nil
}

func printDecode(w io.Writer, out decodeOutput) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tTARGET\tDISTANCE\tINTENSITY\tPASSES")
	for _, r := range out.Results {
		target := r.Target
		if !r.Decoded {
			target = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%t\n", r.Feature, target, r.Distance, r.Intensity, r.PassesThresholds)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := out.Summary
	fmt.Fprintf(w, "\n%d features, %d decoded, %d undecoded (%s, %s)\n",
		s.Features, s.Decoded, s.Undecoded, out.Strategy, out.Method)
	for _, target := range s.Targets() {
		fmt.Fprintf(w, "  %-20s %d\n", target, s.ByTarget[target])
	}
	return nil
}
