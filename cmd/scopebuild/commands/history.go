package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/scopebuild/internal/eventstore"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of builds to show" default:"20"`
	JSON  bool `help:"Print builds as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.ConfigError("build history is disabled (set history.enabled)").Build()
	}

	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds, err := eventstore.Recent(context.Background(), store, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		return printHistoryJSON(g, builds)
	}
	return printHistory(g, builds)
}

func printHistoryJSON(g *Global, builds []*eventstore.BuildSummary) error {
	enc := json.NewEncoder(g.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(builds); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode build history").Build()
	}
	return nil
}

func printHistory(g *Global, builds []*eventstore.BuildSummary) error {
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tTRIGGER\tFILES\tDURATION\tDETAIL")
	for _, b := range builds {
		detail := b.Fingerprint
		if b.Error != "" {
			detail = b.ErrorStage + ": " + b.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(b.BuildID),
			b.StartedAt.Local().Format(time.DateTime),
			b.Status,
			b.Trigger,
			b.Files,
			b.Duration,
			detail)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
