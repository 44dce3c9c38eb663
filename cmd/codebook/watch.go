package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/schema"
	"github.com/c360studio/codebook/watcher"
)

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Revalidate codebooks whenever they change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return a.runWatch(ctx, root)
		},
	}
}

func (a *app) runWatch(ctx context.Context, root string) error {
	v, err := schema.Codebook()
	if err != nil {
		return fmt.Errorf("load codebook schema: %w", err)
	}

	w, err := watcher.New(a.cfg.Watch, root, a.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	opts := a.checkOptions()
	for event := range w.Events() {
		if event.Operation == watcher.OpDelete {
			a.logger.Info("Codebook removed", "path", event.Path)
			continue
		}
		a.report(event, checkFile(v, event.AbsPath, opts))
	}

	if dropped := w.DroppedEvents(); dropped > 0 {
		a.logger.Warn("Watcher dropped events", "total_dropped", dropped)
	}
	a.logger.Info("Codebook watcher stopped")
	return nil
}

func (a *app) report(event watcher.Event, r fileReport) {
	attrs := []any{
		"path", event.Path,
		"op", event.Operation,
		"errors", len(r.Errors),
		"warnings", len(r.Warnings),
	}
	if r.Codebook != nil {
		attrs = append(attrs, "version", r.Codebook.Version, "mappings", len(r.Codebook.Mappings))
	}

	switch {
	case !r.Valid:
		for _, e := range r.Errors {
			a.logger.Error("Codebook error", "path", event.Path, "detail", e)
		}
		a.logger.Error("Codebook invalid", attrs...)
	case len(r.Warnings) > 0:
		for _, w := range r.Warnings {
			a.logger.Warn("Codebook warning", "path", event.Path, "detail", w)
		}
		a.logger.Info("Codebook valid", attrs...)
	default:
		a.logger.Info("Codebook valid", attrs...)
	}
}

