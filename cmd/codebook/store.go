package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/schema"
	"github.com/c360studio/codebook/storage"
)

func storeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the local codebook registry",
		Long: `Store keeps named, validated codebooks in a SQLite registry at storage.path
(default ~/.local/share/codebook/registry.db, overridable with CODEBOOK_DB).`,
	}

	cmd.AddCommand(
		storeAddCmd(a),
		storeListCmd(a),
		storeShowCmd(a),
		storeRmCmd(a),
	)
	return cmd
}

// withStore opens the registry for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(*storage.Store) error) error {
	store, err := storage.Open(ctx, a.cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func storeAddCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add NAME FILE",
		Short: "Validate a codebook and save it under NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]

			v, err := schema.Codebook()
			if err != nil {
				return fmt.Errorf("load codebook schema: %w", err)
			}
			r := checkFile(v, path, a.checkOptions())
			if r.Codebook == nil || (!r.Valid && !force) {
				printFileReport(cmd.ErrOrStderr(), r)
				return fmt.Errorf("refusing to store invalid codebook %s", path)
			}
			for _, w := range r.Warnings {
				a.logger.Warn("Codebook warning", "path", path, "detail", w)
			}

			return a.withStore(cmd.Context(), func(store *storage.Store) error {
				if err := store.Put(cmd.Context(), name, r.Codebook); err != nil {
					return err
				}
				a.logger.Info("Stored codebook", "name", name, "mappings", len(r.Codebook.Mappings))
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%d mappings)\n", name, len(r.Codebook.Mappings))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Store even when lint reports errors")
	return cmd
}

func storeListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored codebooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *storage.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if a.jsonOutput() {
					if records == nil {
						records = []storage.Record{}
					}
					return printJSON(w, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(w, "No codebooks stored")
					return nil
				}

				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tVERSION\tMAPPINGS\tTARGETS\tUPDATED")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
						r.Name, r.Version, r.Mappings, r.Targets, r.UpdatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
}

func storeShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a stored codebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *storage.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if a.jsonOutput() {
					return printJSON(w, rec)
				}
				data, err := rec.Codebook.Marshal()
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			})
		},
	}
}

func storeRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Remove a stored codebook",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *storage.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

