package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/codebook"
	"github.com/c360studio/codebook/schema"
)

// fileReport is the validation outcome for one file.
type fileReport struct {
	File string `json:"file"`
	*codebook.Report
}

func validateCmd(a *app) *cobra.Command {
	var (
		strict   bool
		skipLint bool
	)

	cmd := &cobra.Command{
		Use:   "validate [files|dirs|globs...]",
		Short: "Validate codebooks against the schema and lint rules",
		Long: `Validate checks each codebook against the bundled JSON Schema and then
runs semantic lint checks. Arguments may be files, directories (scanned for
.json, .yaml and .yml files) or doublestar globs such as "panels/**/*.json".
With no arguments the current directory is scanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			opts := a.checkOptions()
			if cmd.Flags().Changed("strict") {
				opts.Strict = strict
			}
			if cmd.Flags().Changed("skip-lint") {
				opts.SkipLint = skipLint
			}
			return a.runValidate(cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat lint warnings as failures")
	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "Only check the schema")

	return cmd
}

func (a *app) checkOptions() codebook.CheckOptions {
	return codebook.CheckOptions{
		Strict:   a.cfg.Validation.IsStrict(),
		SkipLint: a.cfg.Validation.IsSkipLint(),
	}
}

func (a *app) runValidate(w io.Writer, patterns []string, opts codebook.CheckOptions) error {
	files, err := codebook.ResolveFiles(patterns)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no codebook files found")
	}

	v, err := schema.Codebook()
	if err != nil {
		return fmt.Errorf("load codebook schema: %w", err)
	}

	reports := make([]fileReport, 0, len(files))
	invalid := 0
	for _, file := range files {
		r := checkFile(v, file, opts)
		if !r.Valid {
			invalid++
		}
		a.logger.Debug("Validated codebook", "file", file, "valid", r.Valid)
		reports = append(reports, r)
	}

	if a.jsonOutput() {
		if err := printJSON(w, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printFileReport(w, r)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d codebooks invalid", invalid, len(files))
	}
	return nil
}

func checkFile(v *schema.Validator, path string, opts codebook.CheckOptions) fileReport {
	data, err := codebook.ReadDocument(path)
	if err != nil {
		return fileReport{File: path, Report: &codebook.Report{Valid: false, Errors: []string{err.Error()}}}
	}
	return fileReport{File: path, Report: codebook.Check(v, data, opts)}
}

func printFileReport(w io.Writer, r fileReport) {
	mark := "✓"
	if !r.Valid {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, r.File)
	fmt.Fprint(w, r.FormatFeedback())
}
