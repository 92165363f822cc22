package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/foundry/internal/client"
	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/search"
	"github.com/alfredjeanlab/foundry/internal/ui"
	"github.com/alfredjeanlab/foundry/internal/view"
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Count keyword matches across every reference category",
	GroupID: "reference",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("endpoints")

		endpoints := search.DefaultEndpoints(httpURL)
		if path != "" {
			var err error
			if endpoints, err = search.LoadEndpoints(path, httpURL); err != nil {
				return err
			}
		}

		// Categories are plain HTTP URLs whatever the transport.
		s := search.NewSearcher(client.NewHTTPClient(httpURL), endpoints, nil)
		results, err := s.Search(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}

		if jsonOutput {
			if results == nil {
				results = []search.Result{}
			}
			return printJSON(cmd.OutOrStdout(), results)
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No matches found.")
			return nil
		}
		for _, r := range results {
			noun := "matches"
			if r.Count == 1 {
				noun = "match"
			}
			fmt.Fprintf(out, "%s  %s\n", ui.RenderAccent(r.Category), ui.RenderMuted(r.Path))
			fmt.Fprintf(out, "  Found %d %s in this section.\n", r.Count, noun)
		}
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:     "timeline",
	Short:   "Show timeline events grouped by era",
	GroupID: "reference",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		millennium, _ := cmd.Flags().GetInt("millennium")

		recs, err := foundryClient.ListRecords(context.Background(), "timeline")
		if err != nil {
			return fmt.Errorf("listing timeline: %w", err)
		}
		eras := view.TimelineFor(recs, millennium)

		if jsonOutput {
			type era struct {
				Era    string         `json:"era"`
				Events []model.Record `json:"events"`
			}
			out := make([]era, 0, len(eras))
			for _, e := range eras {
				out = append(out, era{Era: e.Label, Events: e.Events})
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := cmd.OutOrStdout()
		if len(eras) == 0 {
			fmt.Fprintf(w, "No recorded events in M%d\n", millennium)
			return nil
		}
		for i, e := range eras {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, ui.RenderAccent(e.Label))
			for _, ev := range e.Events {
				fmt.Fprintf(w, "  %-12s %s\n", model.ImperialCode(ev), ev.Get("title").Text())
				if desc := ev.Get("description").Text(); desc != "" {
					fmt.Fprintf(w, "  %-12s %s\n", "", ui.RenderMuted(cell(model.Text(desc))))
				}
			}
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the service",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := foundryClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", status)
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("endpoints", "", "TOML file with [[endpoint]] categories (default: built-in list)")
	timelineCmd.Flags().Int("millennium", model.Millennium, "millennium to show")
}
